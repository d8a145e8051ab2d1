/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package provider

import (
	"context"
)

// ExecuteSingleOrDefault always fails with ErrRemovedAPI.
//
// Deprecated: Use QuerySingleOrDefault.
func (p *Provider) ExecuteSingleOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	return false, ErrRemovedAPI
}

// ExecuteQuery always fails with ErrRemovedAPI.
//
// Deprecated: Use Query.
func (p *Provider) ExecuteQuery(ctx context.Context, dest any, query string, args ...any) error {
	return ErrRemovedAPI
}
