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
	"reflect"

	"github.com/tomoncle/hummer/types"
)

// ReadOnlyRepository is the read-only base for a model type M, a pointer to a
// bun model struct. What "all rows" means is supplied by the concrete
// repository through its AllFunc.
type ReadOnlyRepository[M types.Entity] struct {
	provider Provider
	all      AllFunc[M]
}

// NewReadOnlyRepository returns a read-only repository over p whose GetAll is all.
// It panics if p or all is nil.
func NewReadOnlyRepository[M types.Entity](p Provider, all AllFunc[M]) *ReadOnlyRepository[M] {
	if p == nil {
		panic("repository: nil provider")
	}
	if all == nil {
		panic("repository: nil AllFunc")
	}
	return &ReadOnlyRepository[M]{provider: p, all: all}
}

// Provider returns the provider the repository runs on.
func (r *ReadOnlyRepository[M]) Provider() Provider { return r.provider }

// QuerySingle returns the only row of query; it fails when there is none or more than one.
func (r *ReadOnlyRepository[M]) QuerySingle(ctx context.Context, query string, args ...any) (M, error) {
	var model M
	if err := r.provider.QuerySingle(ctx, &model, query, args...); err != nil {
		var zero M
		return zero, err
	}
	return model, nil
}

// QuerySingleOrDefault is QuerySingle returning the zero M when no row matches.
func (r *ReadOnlyRepository[M]) QuerySingleOrDefault(ctx context.Context, query string, args ...any) (M, error) {
	var model M
	found, err := r.provider.QuerySingleOrDefault(ctx, &model, query, args...)
	if err != nil || !found {
		var zero M
		return zero, err
	}
	return model, nil
}

// QueryFirst returns the first row of query, or sql.ErrNoRows.
func (r *ReadOnlyRepository[M]) QueryFirst(ctx context.Context, query string, args ...any) (M, error) {
	var model M
	if err := r.provider.QueryFirst(ctx, &model, query, args...); err != nil {
		var zero M
		return zero, err
	}
	return model, nil
}

// QueryFirstOrDefault is QueryFirst returning the zero M when no row matches.
func (r *ReadOnlyRepository[M]) QueryFirstOrDefault(ctx context.Context, query string, args ...any) (M, error) {
	var model M
	found, err := r.provider.QueryFirstOrDefault(ctx, &model, query, args...)
	if err != nil || !found {
		var zero M
		return zero, err
	}
	return model, nil
}

// Query returns every row of query.
func (r *ReadOnlyRepository[M]) Query(ctx context.Context, query string, args ...any) ([]M, error) {
	var models []M
	if err := r.provider.Query(ctx, &models, query, args...); err != nil {
		return nil, err
	}
	return models, nil
}

// Execute runs a statement on the provider's transaction and returns the affected rows.
func (r *ReadOnlyRepository[M]) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return r.provider.Execute(ctx, query, args...)
}

// GetAll returns the repository's full result set.
func (r *ReadOnlyRepository[M]) GetAll(ctx context.Context) ([]M, error) {
	return r.all(ctx)
}

// GetFirstOrDefault returns the first model of GetAll, or the zero M when the
// result is absent or empty.
func (r *ReadOnlyRepository[M]) GetFirstOrDefault(ctx context.Context) (M, error) {
	var zero M
	models, err := r.all(ctx)
	if err != nil {
		return zero, err
	}
	if models == nil {
		return zero, nil
	}
	for _, model := range models {
		return model, nil
	}
	return zero, nil
}

// List returns the models matching filter; a nil filter matches every row.
func (r *ReadOnlyRepository[M]) List(ctx context.Context, filter *types.QueryFilter) ([]M, error) {
	db, err := r.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var models []M
	query := db.NewSelect().Model(&models)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return models, nil
}

// Count returns the number of rows matching filter.
func (r *ReadOnlyRepository[M]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	db, err := r.provider.DB(ctx)
	if err != nil {
		return 0, err
	}
	query := db.NewSelect().Model(newModel[M]())
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	return query.Count(ctx)
}

// Page returns one page of models matching the request's filter. A nil
// request asks for the first page with the default size.
func (r *ReadOnlyRepository[M]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[M], error) {
	if req == nil {
		req = types.NewPageRequest(0, 0, nil)
	}
	db, err := r.provider.DB(ctx)
	if err != nil {
		return nil, err
	}
	var models []M
	query := db.NewSelect().Model(&models)
	if filter := req.GetFilter(); filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	pagination := types.NewPagination[M](req)
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(req.GetOffset()).
		Limit(req.GetPageSize()).
		Order(req.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = models
	return pagination, nil
}

// KeyedReadOnlyRepository adds primary key lookup to ReadOnlyRepository and
// defines GetAll as every row of the model's table.
type KeyedReadOnlyRepository[M types.Entity, K any] struct {
	*ReadOnlyRepository[M]
}

// NewKeyedReadOnlyRepository returns a keyed read-only repository over p.
func NewKeyedReadOnlyRepository[M types.Entity, K any](p Provider) *KeyedReadOnlyRepository[M, K] {
	all := func(ctx context.Context) ([]M, error) {
		var models []M
		if err := p.GetAll(ctx, &models); err != nil {
			return nil, err
		}
		return models, nil
	}
	return &KeyedReadOnlyRepository[M, K]{ReadOnlyRepository: NewReadOnlyRepository[M](p, all)}
}

// Get returns the model with the given key, or the zero M when none exists.
func (r *KeyedReadOnlyRepository[M, K]) Get(ctx context.Context, key K) (M, error) {
	model, _, err := r.Lookup(ctx, key)
	return model, err
}

// Lookup is Get that also reports whether the key was found.
func (r *KeyedReadOnlyRepository[M, K]) Lookup(ctx context.Context, key K) (M, bool, error) {
	var zero M
	model := newModel[M]()
	found, err := r.provider.Get(ctx, model, key)
	if err != nil || !found {
		return zero, false, err
	}
	return model, true, nil
}

// ExecuteScalar runs query on p and returns the first column of the first row.
// It reports false when the query returns no rows.
func ExecuteScalar[T any](ctx context.Context, p Provider, query string, args ...any) (T, bool, error) {
	var value T
	found, err := p.ExecuteScalar(ctx, &value, query, args...)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

// newModel allocates the struct M points to.
func newModel[M any]() M {
	var zero M
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Pointer {
		return zero
	}
	return reflect.New(typ.Elem()).Interface().(M)
}
