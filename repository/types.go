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

	"github.com/tomoncle/hummer/provider"
	"github.com/tomoncle/hummer/types"

	"github.com/uptrace/bun"
)

// Provider is the transactional execution surface repositories run on.
// Repositories share a Provider but never commit or close it.
type Provider interface {
	Get(ctx context.Context, dest any, key any, opts ...provider.CommandOption) (bool, error)
	GetAll(ctx context.Context, dest any, opts ...provider.CommandOption) error
	Insert(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error)
	Update(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error)
	Delete(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error)
	DeleteAll(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error)

	Query(ctx context.Context, dest any, query string, args ...any) error
	QueryFirst(ctx context.Context, dest any, query string, args ...any) error
	QueryFirstOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error)
	QuerySingle(ctx context.Context, dest any, query string, args ...any) error
	QuerySingleOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error)
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	ExecuteScalar(ctx context.Context, dest any, query string, args ...any) (bool, error)

	DB(ctx context.Context) (bun.IDB, error)
}

var _ Provider = (*provider.Provider)(nil)

// AllFunc produces a repository's full result set. A nil slice with a nil
// error means the result is absent.
type AllFunc[M types.Entity] func(ctx context.Context) ([]M, error)

// ReadOnly is a model-scoped read surface.
type ReadOnly[M types.Entity] interface {
	GetAll(ctx context.Context) ([]M, error)
	GetFirstOrDefault(ctx context.Context) (M, error)
}

// KeyedReadOnly adds primary key lookup.
type KeyedReadOnly[M types.Entity, K any] interface {
	ReadOnly[M]
	Get(ctx context.Context, key K) (M, error)
}

// Writable adds mutation. None of its operations commit.
type Writable[M types.Entity, K any] interface {
	KeyedReadOnly[M, K]
	Add(ctx context.Context, model M) (bool, error)
	Update(ctx context.Context, model M) (bool, error)
	AddOrUpdate(ctx context.Context, model M) (bool, error)
	Delete(ctx context.Context, model M) (bool, error)
	DeleteAll(ctx context.Context) (bool, error)
}
