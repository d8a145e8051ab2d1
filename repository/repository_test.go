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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer/provider"
	"github.com/tomoncle/hummer/types"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Get(ctx context.Context, dest any, key any, opts ...provider.CommandOption) (bool, error) {
	args := m.Called(ctx, dest, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvider) GetAll(ctx context.Context, dest any, opts ...provider.CommandOption) error {
	return m.Called(ctx, dest).Error(0)
}

func (m *mockProvider) Insert(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error) {
	args := m.Called(ctx, model)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvider) Update(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error) {
	args := m.Called(ctx, model)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvider) Delete(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error) {
	args := m.Called(ctx, model)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvider) DeleteAll(ctx context.Context, model any, opts ...provider.CommandOption) (bool, error) {
	args := m.Called(ctx, model)
	return args.Bool(0), args.Error(1)
}

func (m *mockProvider) Query(ctx context.Context, dest any, query string, args ...any) error {
	return m.Called(ctx, dest, query).Error(0)
}

func (m *mockProvider) QueryFirst(ctx context.Context, dest any, query string, args ...any) error {
	return m.Called(ctx, dest, query).Error(0)
}

func (m *mockProvider) QueryFirstOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	ret := m.Called(ctx, dest, query)
	return ret.Bool(0), ret.Error(1)
}

func (m *mockProvider) QuerySingle(ctx context.Context, dest any, query string, args ...any) error {
	return m.Called(ctx, dest, query).Error(0)
}

func (m *mockProvider) QuerySingleOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	ret := m.Called(ctx, dest, query)
	return ret.Bool(0), ret.Error(1)
}

func (m *mockProvider) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	ret := m.Called(ctx, query)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *mockProvider) ExecuteScalar(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	ret := m.Called(ctx, dest, query)
	return ret.Bool(0), ret.Error(1)
}

func (m *mockProvider) DB(ctx context.Context) (bun.IDB, error) {
	ret := m.Called(ctx)
	db, _ := ret.Get(0).(bun.IDB)
	return db, ret.Error(1)
}

type note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`
	types.IDModel

	Title string `bun:"title,notnull"`
}

func TestAddOrUpdateDispatchesOnTransience(t *testing.T) {
	ctx := context.Background()
	p := new(mockProvider)
	repo := NewRepository[*note, int64](p)

	fresh := &note{Title: "fresh"}
	stored := &note{IDModel: types.IDModel{ID: 7}, Title: "stored"}
	p.On("Insert", ctx, fresh).Return(true, nil).Once()
	p.On("Update", ctx, stored).Return(true, nil).Once()

	ok, err := repo.AddOrUpdate(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AddOrUpdate(ctx, stored)
	require.NoError(t, err)
	assert.True(t, ok)

	p.AssertExpectations(t)
	p.AssertNotCalled(t, "Update", ctx, fresh)
	p.AssertNotCalled(t, "Insert", ctx, stored)
}

func TestMutationsDelegateToProvider(t *testing.T) {
	ctx := context.Background()
	p := new(mockProvider)
	repo := NewRepository[*note, int64](p)
	n := &note{IDModel: types.IDModel{ID: 1}}

	p.On("Delete", ctx, n).Return(true, nil).Once()
	p.On("DeleteAll", ctx, (*note)(nil)).Return(false, nil).Once()

	ok, err := repo.Delete(ctx, n)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	p.AssertExpectations(t)
}

func TestGetFirstOrDefault(t *testing.T) {
	ctx := context.Background()
	a, b, c := &note{Title: "a"}, &note{Title: "b"}, &note{Title: "c"}
	boom := errors.New("boom")

	tests := []struct {
		name    string
		all     AllFunc[*note]
		want    *note
		wantErr error
	}{
		{"absent", func(context.Context) ([]*note, error) { return nil, nil }, nil, nil},
		{"empty", func(context.Context) ([]*note, error) { return []*note{}, nil }, nil, nil},
		{"three", func(context.Context) ([]*note, error) { return []*note{a, b, c}, nil }, a, nil},
		{"error", func(context.Context) ([]*note, error) { return nil, boom }, nil, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewReadOnlyRepository[*note](new(mockProvider), tt.all)
			got, err := repo.GetFirstOrDefault(ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestGetReturnsZeroWhenMissing(t *testing.T) {
	ctx := context.Background()
	p := new(mockProvider)
	p.On("Get", ctx, mock.AnythingOfType("*repository.note"), int64(9)).Return(false, nil).Once()

	got, err := NewKeyedReadOnlyRepository[*note, int64](p).Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, got)
	p.AssertExpectations(t)
}

func TestQueryHelpersPropagateErrors(t *testing.T) {
	ctx := context.Background()
	p := new(mockProvider)
	boom := errors.New("boom")
	p.On("QuerySingle", ctx, mock.Anything, "select").Return(boom).Once()
	p.On("QueryFirstOrDefault", ctx, mock.Anything, "select").Return(false, nil).Once()

	repo := NewKeyedReadOnlyRepository[*note, int64](p)
	got, err := repo.QuerySingle(ctx, "select")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)

	got, err = repo.QueryFirstOrDefault(ctx, "select")
	require.NoError(t, err)
	assert.Nil(t, got)
	p.AssertExpectations(t)
}

func TestNewReadOnlyRepositoryRejectsNil(t *testing.T) {
	all := func(context.Context) ([]*note, error) { return nil, nil }
	assert.Panics(t, func() { NewReadOnlyRepository[*note](nil, all) })
	assert.Panics(t, func() { NewReadOnlyRepository[*note](new(mockProvider), nil) })
}
