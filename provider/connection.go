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
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ConnectionState reports whether a Connection currently holds an open session.
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateOpen
)

func (s ConnectionState) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Connection is the single database session a Provider owns.
type Connection interface {
	State() ConnectionState
	Open(ctx context.Context) error
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Transaction, error)
	Dialect() schema.Dialect
	Close() error
}

// Transaction is a transaction begun on a Connection. Release disposes of the
// handle once it has been committed or rolled back.
type Transaction interface {
	DB() bun.IDB
	Commit() error
	Rollback() error
	Release() error
}

// ConnectionFactory produces an unopened Connection.
type ConnectionFactory func() (Connection, error)

type bunConnection struct {
	db   *bun.DB
	conn *bun.Conn
}

// NewBunConnection returns an unopened Connection over db. Opening it pins one
// connection from the pool until Close returns it.
func NewBunConnection(db *bun.DB) Connection {
	return &bunConnection{db: db}
}

// BunConnectionFactory returns a factory producing connections over db.
func BunConnectionFactory(db *bun.DB) ConnectionFactory {
	return func() (Connection, error) {
		if db == nil {
			return nil, errors.New("provider: database not initialized")
		}
		return NewBunConnection(db), nil
	}
}

func (c *bunConnection) State() ConnectionState {
	if c.conn != nil {
		return StateOpen
	}
	return StateClosed
}

func (c *bunConnection) Open(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return err
	}
	c.conn = &conn
	return nil
}

func (c *bunConnection) BeginTx(ctx context.Context, opts *sql.TxOptions) (Transaction, error) {
	if c.conn == nil {
		return nil, ErrConnectionClosed
	}
	tx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &bunTransaction{tx: tx}, nil
}

func (c *bunConnection) Dialect() schema.Dialect { return c.db.Dialect() }

func (c *bunConnection) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type bunTransaction struct {
	tx bun.Tx
}

func (t *bunTransaction) DB() bun.IDB { return &t.tx }

func (t *bunTransaction) Commit() error { return t.tx.Commit() }

func (t *bunTransaction) Rollback() error { return t.tx.Rollback() }

// Release is a no-op: database/sql frees the handle on commit or rollback.
func (t *bunTransaction) Release() error { return nil }
