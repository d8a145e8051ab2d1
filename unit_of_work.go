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
	"errors"
	"fmt"

	"github.com/tomoncle/hummer/database"
	"github.com/tomoncle/hummer/provider"
)

// UnitOfWork creates providers that share a connection source and a set of
// default options. Each provider is one unit of work.
type UnitOfWork struct {
	newProvider func(opts ...provider.Option) *provider.Provider
	opts        []provider.Option
}

// NewUnitOfWork returns a UnitOfWork over factory.
func NewUnitOfWork(factory provider.ConnectionFactory, opts ...provider.Option) *UnitOfWork {
	return &UnitOfWork{
		newProvider: func(opts ...provider.Option) *provider.Provider { return provider.New(factory, opts...) },
		opts:        opts,
	}
}

// FromManager returns a UnitOfWork whose providers carry the manager's
// configured defaults, overridden by opts.
func FromManager(m database.AbstractDatabaseManager, opts ...provider.Option) *UnitOfWork {
	return &UnitOfWork{newProvider: m.NewProvider, opts: opts}
}

// Default returns a UnitOfWork on the database set up by database.InitDB.
func Default() (*UnitOfWork, error) {
	m := database.GetDatabaseManager()
	if m == nil {
		return nil, database.ErrNotInitialized
	}
	return FromManager(m), nil
}

// Begin returns a new provider. The caller owns it and must Close it.
func (u *UnitOfWork) Begin(opts ...provider.Option) *provider.Provider {
	all := make([]provider.Option, 0, len(u.opts)+len(opts))
	all = append(all, u.opts...)
	all = append(all, opts...)
	return u.newProvider(all...)
}

// Run calls fn with a fresh provider. The transaction is committed when fn
// returns nil and rolled back otherwise; the provider is closed in every case,
// including when fn panics. Close errors are joined to the returned error.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, p *provider.Provider) error, opts ...provider.Option) (err error) {
	p := u.Begin(opts...)
	defer func() {
		if r := recover(); r != nil {
			if cerr := p.Close(); cerr != nil {
				database.GetLogger().Error("unit of work teardown failed after panic", "error", cerr)
			}
			panic(r)
		}
		if cerr := p.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := fn(ctx, p); err != nil {
		if p.State() == provider.TxActive {
			if rbErr := p.Rollback(); rbErr != nil {
				return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
		return err
	}
	if p.State() == provider.TxActive {
		return p.Commit()
	}
	return nil
}
