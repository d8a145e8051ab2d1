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

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity is the identity capability every persisted model exposes. A model is
// transient until it has been inserted and carries a storage identity.
type Entity interface {
	IsTransient() bool
}

// IDModel is an embeddable auto-increment primary key.
type IDModel struct {
	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

// IsTransient reports whether the database has not yet assigned an ID.
func (m *IDModel) IsTransient() bool { return m.ID == 0 }

// UUIDModel is an embeddable UUID primary key assigned when the row is inserted.
type UUIDModel struct {
	ID uuid.UUID `bun:"id,pk,type:varchar(36)" json:"id"`
}

var _ bun.BeforeAppendModelHook = (*UUIDModel)(nil)

// IsTransient reports whether no ID has been assigned yet.
func (m *UUIDModel) IsTransient() bool { return m.ID == uuid.Nil }

// BeforeAppendModel assigns a fresh ID to transient models being inserted.
func (m *UUIDModel) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
