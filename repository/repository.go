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

package repository

import (
	"context"

	"github.com/tomoncle/hummer/types"
)

// Repository is the read-write repository for model M keyed by K. Its
// mutations run in whatever transaction the shared provider holds; the owner
// of the provider decides when to commit.
type Repository[M types.Entity, K any] struct {
	*KeyedReadOnlyRepository[M, K]
}

var _ Writable[*types.IDModel, int64] = (*Repository[*types.IDModel, int64])(nil)

// NewRepository returns a read-write repository over p.
func NewRepository[M types.Entity, K any](p Provider) *Repository[M, K] {
	return &Repository[M, K]{KeyedReadOnlyRepository: NewKeyedReadOnlyRepository[M, K](p)}
}

func (r *Repository[M, K]) Add(ctx context.Context, model M) (bool, error) {
	return r.provider.Insert(ctx, model)
}

func (r *Repository[M, K]) Update(ctx context.Context, model M) (bool, error) {
	return r.provider.Update(ctx, model)
}

// AddOrUpdate inserts model when it is transient and updates it otherwise. A
// model carrying a pre-assigned key is not transient and is always updated.
func (r *Repository[M, K]) AddOrUpdate(ctx context.Context, model M) (bool, error) {
	if model.IsTransient() {
		return r.Add(ctx, model)
	}
	return r.Update(ctx, model)
}

func (r *Repository[M, K]) Delete(ctx context.Context, model M) (bool, error) {
	return r.provider.Delete(ctx, model)
}

// DeleteAll removes every row of the model's table.
func (r *Repository[M, K]) DeleteAll(ctx context.Context) (bool, error) {
	var model M
	return r.provider.DeleteAll(ctx, model)
}
