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
	"time"
)

// TxState is the lifecycle state of a Provider's transaction.
type TxState int

const (
	TxNone TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "none"
	}
}

// Logger is the logging surface a Provider writes lifecycle events to.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Option configures a Provider.
type Option func(*Provider)

// WithIsolationLevel sets the isolation level the transaction is begun with.
func WithIsolationLevel(level sql.IsolationLevel) Option {
	return func(p *Provider) { p.txOptions.Isolation = level }
}

// WithReadOnly begins the transaction in read-only mode.
func WithReadOnly() Option {
	return func(p *Provider) { p.txOptions.ReadOnly = true }
}

// WithCommandTimeout sets the timeout applied to commands that do not carry their own.
func WithCommandTimeout(d time.Duration) Option {
	return func(p *Provider) { p.commandTimeout = d }
}

// WithLogger sets the lifecycle logger.
func WithLogger(logger Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithMetrics records transaction outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// Provider owns one connection and at most one transaction for a unit of work.
// Every command issued through it runs in that transaction. A Provider is not
// safe for concurrent use and must be closed exactly once by its creator.
type Provider struct {
	factory        ConnectionFactory
	txOptions      sql.TxOptions
	commandTimeout time.Duration
	logger         Logger
	metrics        *Metrics

	conn   Connection
	tx     Transaction
	state  TxState
	began  time.Time
	closed bool
}

// New returns a Provider that obtains its connection from factory on first use.
func New(factory ConnectionFactory, opts ...Option) *Provider {
	p := &Provider{factory: factory}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connection returns the provider's connection, creating it on first call.
// The connection is never recreated.
func (p *Provider) Connection() (Connection, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.conn != nil {
		return p.conn, nil
	}
	if p.factory == nil {
		return nil, errors.New("provider: no connection factory")
	}
	conn, err := p.factory()
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// Transaction returns the provider's transaction, opening the connection and
// beginning the transaction on first call. The transaction outlives ctx: its
// lifetime is bounded by Commit, Rollback or Close, not by cancellation.
func (p *Provider) Transaction(ctx context.Context) (Transaction, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.tx != nil {
		return p.tx, nil
	}
	conn, err := p.Connection()
	if err != nil {
		return nil, err
	}
	if conn.State() != StateOpen {
		if err := conn.Open(ctx); err != nil {
			return nil, err
		}
	}
	opts := p.txOptions
	tx, err := conn.BeginTx(context.WithoutCancel(ctx), &opts)
	if err != nil {
		return nil, err
	}
	p.tx = tx
	p.state = TxActive
	p.began = time.Now()
	return tx, nil
}

// State reports the transaction state.
func (p *Provider) State() TxState { return p.state }

// Committed reports whether Commit has succeeded.
func (p *Provider) Committed() bool { return p.state == TxCommitted }

// Commit commits the transaction. It is a no-op when no transaction was begun.
func (p *Provider) Commit() error {
	if p.closed {
		return ErrProviderClosed
	}
	switch p.state {
	case TxNone:
		return nil
	case TxCommitted:
		return ErrAlreadyCommitted
	case TxRolledBack:
		return ErrAlreadyRolledBack
	}
	if err := p.tx.Commit(); err != nil {
		return err
	}
	p.state = TxCommitted
	p.metrics.observe(outcomeCommitted, p.began)
	p.logDebug("Transaction committed", "elapsed", time.Since(p.began))
	return nil
}

// Rollback rolls the transaction back. It is a no-op when no transaction was begun.
func (p *Provider) Rollback() error {
	if p.closed {
		return ErrProviderClosed
	}
	switch p.state {
	case TxNone:
		return nil
	case TxCommitted:
		return ErrAlreadyCommitted
	case TxRolledBack:
		return ErrAlreadyRolledBack
	}
	if err := p.tx.Rollback(); err != nil {
		return err
	}
	p.state = TxRolledBack
	p.metrics.observe(outcomeRolledBack, p.began)
	p.logDebug("Transaction rolled back", "elapsed", time.Since(p.began))
	return nil
}

// Close tears the provider down: an uncommitted transaction is rolled back,
// the transaction is released, then the connection is closed if open. A
// rollback failure is reported but does not stop the connection from closing.
// Calling Close twice returns ErrProviderClosed.
func (p *Provider) Close() error {
	if p.closed {
		return ErrProviderClosed
	}
	p.closed = true

	var errs []error
	if p.tx != nil {
		if p.state == TxActive {
			err := p.tx.Rollback()
			switch {
			case err == nil:
				p.state = TxRolledBack
				p.metrics.observe(outcomeAutoRollback, p.began)
				p.logWarn("Uncommitted transaction rolled back on close", "elapsed", time.Since(p.began))
			case errors.Is(err, sql.ErrTxDone):
				p.state = TxRolledBack
			default:
				p.logError("Rollback on close failed", "error", err)
				errs = append(errs, fmt.Errorf("rollback on close: %w", err))
			}
		}
		if err := p.tx.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release transaction: %w", err))
		}
	} else {
		p.metrics.observe(outcomeUnused, time.Time{})
	}

	if p.conn != nil && p.conn.State() != StateClosed {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) logDebug(msg string, fields ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, fields...)
	}
}

func (p *Provider) logWarn(msg string, fields ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, fields...)
	}
}

func (p *Provider) logError(msg string, fields ...interface{}) {
	if p.logger != nil {
		p.logger.Error(msg, fields...)
	}
}
