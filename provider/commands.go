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
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

// CommandType tells the provider how to interpret a command's SQL text.
type CommandType int

const (
	// CommandText runs the SQL as given.
	CommandText CommandType = iota
	// CommandStoredProcedure treats the SQL as a procedure name and the args as its parameters.
	CommandStoredProcedure
)

// CommandOption adjusts a single command. Options may be passed among the
// variadic SQL args; they are removed before the args are bound.
type CommandOption func(*command)

type command struct {
	timeout time.Duration
	kind    CommandType
}

// Timeout bounds a single command, overriding the provider default.
func Timeout(d time.Duration) CommandOption {
	return func(c *command) { c.timeout = d }
}

// StoredProcedure runs the command as a stored procedure call.
func StoredProcedure() CommandOption {
	return func(c *command) { c.kind = CommandStoredProcedure }
}

func newCommand(opts []CommandOption) command {
	var c command
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

func splitArgs(args []any) (command, []any) {
	var c command
	params := make([]any, 0, len(args))
	for _, arg := range args {
		if opt, ok := arg.(CommandOption); ok {
			if opt != nil {
				opt(&c)
			}
			continue
		}
		params = append(params, arg)
	}
	return c, params
}

func (c command) render(d schema.Dialect, query string, nargs int) (string, error) {
	if c.kind != CommandStoredProcedure {
		return query, nil
	}
	switch d.Name() {
	case dialect.PG, dialect.MySQL:
	default:
		return "", fmt.Errorf("%w: stored procedure on %s", ErrUnsupportedCommand, d.Name())
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", nargs), ", ")
	return fmt.Sprintf("CALL %s(%s)", query, placeholders), nil
}

func noop() {}

// prepare returns the transaction handle and the per-command context.
// The cancel func is non-nil on success only.
func (p *Provider) prepare(ctx context.Context, c command) (bun.IDB, context.Context, context.CancelFunc, error) {
	tx, err := p.Transaction(ctx)
	if err != nil {
		return nil, ctx, nil, err
	}
	timeout := c.timeout
	if timeout <= 0 {
		timeout = p.commandTimeout
	}
	if timeout <= 0 {
		return tx.DB(), ctx, noop, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return tx.DB(), ctx, cancel, nil
}

func (p *Provider) raw(ctx context.Context, query string, args []any) (*bun.RawQuery, context.Context, context.CancelFunc, error) {
	c, params := splitArgs(args)
	db, ctx, cancel, err := p.prepare(ctx, c)
	if err != nil {
		return nil, ctx, nil, err
	}
	query, err = c.render(db.Dialect(), query, len(params))
	if err != nil {
		cancel()
		return nil, ctx, nil, err
	}
	return db.NewRaw(query, params...), ctx, cancel, nil
}

func checkDest(dest any) (reflect.Value, error) {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return v, fmt.Errorf("%w: %T", ErrInvalidDestination, dest)
	}
	return v, nil
}

// scanRows scans every row into a slice of dest's element type.
func scanRows(ctx context.Context, q *bun.RawQuery, dest any) (reflect.Value, error) {
	v, err := checkDest(dest)
	if err != nil {
		return reflect.Value{}, err
	}
	rows := reflect.New(reflect.SliceOf(v.Elem().Type()))
	if err := q.Scan(ctx, rows.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return rows.Elem(), nil
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func assignFirst(dest any, rows reflect.Value) {
	reflect.ValueOf(dest).Elem().Set(rows.Index(0))
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Execute runs a statement and returns the number of affected rows.
func (p *Provider) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	q, ctx, cancel, err := p.raw(ctx, query, args)
	if err != nil {
		return 0, err
	}
	defer cancel()
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecuteScalar scans the first column of the first row into dest. It reports
// false when the query returns no rows.
func (p *Provider) ExecuteScalar(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	return p.QueryFirstOrDefault(ctx, dest, query, args...)
}

// Query scans all rows into dest, which must point to a slice.
func (p *Provider) Query(ctx context.Context, dest any, query string, args ...any) error {
	if _, err := checkDest(dest); err != nil {
		return err
	}
	q, ctx, cancel, err := p.raw(ctx, query, args)
	if err != nil {
		return err
	}
	defer cancel()
	return q.Scan(ctx, dest)
}

// QueryFirst scans the first row into dest. It returns sql.ErrNoRows when the
// query returns no rows.
func (p *Provider) QueryFirst(ctx context.Context, dest any, query string, args ...any) error {
	found, err := p.QueryFirstOrDefault(ctx, dest, query, args...)
	if err != nil {
		return err
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

// QueryFirstOrDefault scans the first row into dest and reports whether a row
// was found. dest is left untouched when there are no rows.
func (p *Provider) QueryFirstOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	if _, err := checkDest(dest); err != nil {
		return false, err
	}
	q, ctx, cancel, err := p.raw(ctx, query, args)
	if err != nil {
		return false, err
	}
	defer cancel()
	rows, err := scanRows(ctx, q, dest)
	if err != nil {
		return false, err
	}
	if rows.Len() == 0 {
		return false, nil
	}
	assignFirst(dest, rows)
	return true, nil
}

// QuerySingle scans exactly one row into dest. It returns sql.ErrNoRows when
// there are no rows and ErrMultipleRows when there is more than one.
func (p *Provider) QuerySingle(ctx context.Context, dest any, query string, args ...any) error {
	found, err := p.QuerySingleOrDefault(ctx, dest, query, args...)
	if err != nil {
		return err
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

// QuerySingleOrDefault scans the only row into dest and reports whether a row
// was found. It returns ErrMultipleRows when there is more than one.
func (p *Provider) QuerySingleOrDefault(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	if _, err := checkDest(dest); err != nil {
		return false, err
	}
	q, ctx, cancel, err := p.raw(ctx, query, args)
	if err != nil {
		return false, err
	}
	defer cancel()
	rows, err := scanRows(ctx, q, dest)
	if err != nil {
		return false, err
	}
	switch rows.Len() {
	case 0:
		return false, nil
	case 1:
		assignFirst(dest, rows)
		return true, nil
	default:
		return false, ErrMultipleRows
	}
}

// Get loads the row whose primary key equals key into dest, a pointer to a
// model struct. It reports false, without error, when no row matches. The
// model must have a single primary key column.
func (p *Provider) Get(ctx context.Context, dest any, key any, opts ...CommandOption) (bool, error) {
	v, err := checkDest(dest)
	if err != nil {
		return false, err
	}
	db, ctx, cancel, err := p.prepare(ctx, newCommand(opts))
	if err != nil {
		return false, err
	}
	defer cancel()
	if typ := indirectType(v.Type()); typ.Kind() == reflect.Struct {
		if table := db.Dialect().Tables().Get(typ); len(table.PKs) != 1 {
			return false, fmt.Errorf("%w: %s has %d", ErrCompositeKey, table.Name, len(table.PKs))
		}
	}
	err = db.NewSelect().Model(dest).Where("?TablePKs = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAll loads every row of the model's table into dest, a pointer to a slice of models.
func (p *Provider) GetAll(ctx context.Context, dest any, opts ...CommandOption) error {
	if _, err := checkDest(dest); err != nil {
		return err
	}
	db, ctx, cancel, err := p.prepare(ctx, newCommand(opts))
	if err != nil {
		return err
	}
	defer cancel()
	return db.NewSelect().Model(dest).Scan(ctx)
}

// Insert inserts model and reports whether a row was written.
func (p *Provider) Insert(ctx context.Context, model any, opts ...CommandOption) (bool, error) {
	db, ctx, cancel, err := p.prepare(ctx, newCommand(opts))
	if err != nil {
		return false, err
	}
	defer cancel()
	return affected(db.NewInsert().Model(model).Exec(ctx))
}

// Update updates model by primary key and reports whether a row changed.
func (p *Provider) Update(ctx context.Context, model any, opts ...CommandOption) (bool, error) {
	db, ctx, cancel, err := p.prepare(ctx, newCommand(opts))
	if err != nil {
		return false, err
	}
	defer cancel()
	return affected(db.NewUpdate().Model(model).WherePK().Exec(ctx))
}

// Delete deletes model by primary key and reports whether a row was removed.
func (p *Provider) Delete(ctx context.Context, model any, opts ...CommandOption) (bool, error) {
	db, ctx, cancel, err := p.prepare(ctx, newCommand(opts))
	if err != nil {
		return false, err
	}
	defer cancel()
	return affected(db.NewDelete().Model(model).WherePK().Exec(ctx))
}

// DeleteAll deletes every row of model's table. model may be a typed nil
// pointer such as (*User)(nil).
func (p *Provider) DeleteAll(ctx context.Context, model any, opts ...CommandOption) (bool, error) {
	db, ctx, cancel, err := p.prepare(ctx, newCommand(opts))
	if err != nil {
		return false, err
	}
	defer cancel()
	return affected(db.NewDelete().Model(model).Where("1 = 1").Exec(ctx))
}

// QualifiedTableName returns the quoted table name bun maps model to. It does
// not begin a transaction.
func (p *Provider) QualifiedTableName(model any) (string, error) {
	conn, err := p.Connection()
	if err != nil {
		return "", err
	}
	typ := reflect.TypeOf(model)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return "", fmt.Errorf("provider: %T is not a model", model)
	}
	return string(conn.Dialect().Tables().Get(typ).SQLName), nil
}

// DB returns the transaction-bound bun handle for building queries directly.
func (p *Provider) DB(ctx context.Context) (bun.IDB, error) {
	tx, err := p.Transaction(ctx)
	if err != nil {
		return nil, err
	}
	return tx.DB(), nil
}
