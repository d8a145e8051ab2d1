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

package hummer

import (
	"context"
	"database/sql"

	"github.com/tomoncle/hummer/provider"
	"github.com/tomoncle/hummer/repository"
	"github.com/tomoncle/hummer/types"
)

// Service exposes repository operations for model M keyed by K where every
// call is its own unit of work: reads run in a transaction that is discarded,
// writes commit before the call returns.
type Service[M types.Entity, K any] interface {
	// Get returns a single entity by its key, or the zero M when missing.
	Get(ctx context.Context, key K) (M, error)

	// All returns all entities.
	All(ctx context.Context) ([]M, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]M, error)

	// Query executes a raw query and maps the results to entities.
	Query(ctx context.Context, query string, args ...any) ([]M, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[M], error)

	// Save inserts new entities, all or none.
	Save(ctx context.Context, models ...M) error

	// SaveOrUpdate inserts transient entities and updates the rest, all or
	// none. Updating a row that does not exist fails with sql.ErrNoRows.
	SaveOrUpdate(ctx context.Context, models ...M) error

	// Update modifies an existing entity, or fails with sql.ErrNoRows.
	Update(ctx context.Context, model M) error

	// Delete removes the entity with the given key. It reports false when no
	// such entity exists.
	Delete(ctx context.Context, key K) (bool, error)

	// Within runs fn with a repository on a new unit of work.
	Within(ctx context.Context, fn func(ctx context.Context, repo *repository.Repository[M, K]) error) error
}

type baseServiceImpl[M types.Entity, K any] struct {
	uow *UnitOfWork
}

// NewService returns a Service whose units of work come from uow.
func NewService[M types.Entity, K any](uow *UnitOfWork) Service[M, K] {
	return &baseServiceImpl[M, K]{uow: uow}
}

func (s *baseServiceImpl[M, K]) Within(ctx context.Context, fn func(ctx context.Context, repo *repository.Repository[M, K]) error) error {
	return s.uow.Run(ctx, func(ctx context.Context, p *provider.Provider) error {
		return fn(ctx, repository.NewRepository[M, K](p))
	})
}

// read runs fn in a unit of work that is rolled back even on success.
func (s *baseServiceImpl[M, K]) read(ctx context.Context, fn func(ctx context.Context, repo *repository.Repository[M, K]) error) error {
	return s.uow.Run(ctx, func(ctx context.Context, p *provider.Provider) error {
		if err := fn(ctx, repository.NewRepository[M, K](p)); err != nil {
			return err
		}
		return p.Rollback()
	})
}

func (s *baseServiceImpl[M, K]) Get(ctx context.Context, key K) (model M, err error) {
	err = s.read(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		model, err = repo.Get(ctx, key)
		return err
	})
	return model, err
}

func (s *baseServiceImpl[M, K]) All(ctx context.Context) (models []M, err error) {
	err = s.read(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		models, err = repo.GetAll(ctx)
		return err
	})
	return models, err
}

func (s *baseServiceImpl[M, K]) List(ctx context.Context, filter *types.QueryFilter) (models []M, err error) {
	err = s.read(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		models, err = repo.List(ctx, filter)
		return err
	})
	return models, err
}

func (s *baseServiceImpl[M, K]) Query(ctx context.Context, query string, args ...any) (models []M, err error) {
	err = s.read(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		models, err = repo.Query(ctx, query, args...)
		return err
	})
	return models, err
}

func (s *baseServiceImpl[M, K]) Page(ctx context.Context, req *types.PageRequest) (page *types.Pagination[M], err error) {
	err = s.read(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		page, err = repo.Page(ctx, req)
		return err
	})
	return page, err
}

func (s *baseServiceImpl[M, K]) Save(ctx context.Context, models ...M) error {
	return s.Within(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		for _, model := range models {
			if _, err := repo.Add(ctx, model); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *baseServiceImpl[M, K]) SaveOrUpdate(ctx context.Context, models ...M) error {
	return s.Within(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		for _, model := range models {
			ok, err := repo.AddOrUpdate(ctx, model)
			if err != nil {
				return err
			}
			if !ok {
				return sql.ErrNoRows
			}
		}
		return nil
	})
}

func (s *baseServiceImpl[M, K]) Update(ctx context.Context, model M) error {
	return s.Within(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		ok, err := repo.Update(ctx, model)
		if err == nil && !ok {
			err = sql.ErrNoRows
		}
		return err
	})
}

func (s *baseServiceImpl[M, K]) Delete(ctx context.Context, key K) (deleted bool, err error) {
	err = s.Within(ctx, func(ctx context.Context, repo *repository.Repository[M, K]) error {
		model, found, err := repo.Lookup(ctx, key)
		if err != nil || !found {
			return err
		}
		deleted, err = repo.Delete(ctx, model)
		return err
	})
	return deleted, err
}
