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

package types

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

type account struct {
	IDModel
	Email string
}

type token struct {
	UUIDModel
	Value string
}

func TestIDModelTransient(t *testing.T) {
	a := &account{Email: "a@example.com"}
	assert.True(t, a.IsTransient())

	a.ID = 42
	assert.False(t, a.IsTransient())
}

func TestUUIDModelAssignsIDOnInsert(t *testing.T) {
	tok := &token{Value: "secret"}
	assert.True(t, tok.IsTransient())

	assert.NoError(t, tok.BeforeAppendModel(context.Background(), &bun.UpdateQuery{}))
	assert.True(t, tok.IsTransient(), "only inserts assign an ID")

	assert.NoError(t, tok.BeforeAppendModel(context.Background(), &bun.InsertQuery{}))
	assert.False(t, tok.IsTransient())
	assigned := tok.ID

	assert.NoError(t, tok.BeforeAppendModel(context.Background(), &bun.InsertQuery{}))
	assert.Equal(t, assigned, tok.ID, "an existing ID is kept")
	assert.NotEqual(t, uuid.Nil, tok.ID)
}

func TestPageRequestDefaults(t *testing.T) {
	req := NewPageRequest(0, 0, nil)
	assert.Equal(t, 1, req.GetPage())
	assert.Equal(t, 10, req.GetPageSize())
	assert.Equal(t, 0, req.GetOffset())

	req = NewPageRequest(3, 25, NewQueryFilter("qty > ?", 1), "id ASC")
	assert.Equal(t, 50, req.GetOffset())
	assert.Equal(t, []string{"id ASC"}, req.GetOrders())
	assert.Equal(t, []interface{}{1}, req.GetFilter().Args)
}

func TestPaginationPages(t *testing.T) {
	p := NewPagination[string](NewPageRequest(1, 10, nil))
	assert.Equal(t, 0, p.Pages())
	assert.NotNil(t, p.Items)

	p.Total = 21
	assert.Equal(t, 3, p.Pages())
}
