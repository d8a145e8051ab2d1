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
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCommitted is returned by Commit or Rollback after a successful commit.
	ErrAlreadyCommitted = errors.New("provider: transaction already committed")

	// ErrAlreadyRolledBack is returned by Commit or Rollback after a rollback.
	ErrAlreadyRolledBack = errors.New("provider: transaction already rolled back")

	// ErrProviderClosed is returned by any operation after Close, including a second Close.
	ErrProviderClosed = errors.New("provider: provider is closed")

	// ErrConnectionClosed is returned when beginning a transaction on a connection that is not open.
	ErrConnectionClosed = errors.New("provider: connection is not open")

	// ErrMultipleRows is returned by the single-row queries when more than one row matches.
	ErrMultipleRows = errors.New("provider: query returned more than one row")

	// ErrInvalidDestination is returned when a scan destination is not a non-nil pointer.
	ErrInvalidDestination = errors.New("provider: destination must be a non-nil pointer")

	// ErrUnsupportedCommand is returned when the dialect cannot run the requested command type.
	ErrUnsupportedCommand = errors.New("provider: command type not supported by dialect")

	// ErrCompositeKey is returned by Get for models without exactly one primary key column.
	ErrCompositeKey = errors.New("provider: lookup by key needs a single primary key column")

	// ErrRemovedAPI is returned by the deprecated passthroughs.
	ErrRemovedAPI = fmt.Errorf("provider: removed API: %w", errors.ErrUnsupported)
)
