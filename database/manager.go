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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/tomoncle/hummer/provider"
)

var ErrNotConnected = errors.New("database not connected")

type ManagerOption func(*defaultDatabaseManager)

// WithRegisterer registers provider transaction metrics and query duration
// metrics with reg.
func WithRegisterer(reg prometheus.Registerer) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.registerer = reg }
}

type defaultDatabaseManager struct {
	config     *ConnectionConfig
	db         *bun.DB
	sqlDB      *sql.DB
	logger     Logger
	registerer prometheus.Registerer
	metrics    *provider.Metrics
	queryHook  *MetricsHook
	mu         sync.RWMutex
	connected  bool
	lastError  error
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig, opts ...ManagerOption) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	dm := &defaultDatabaseManager{config: config, logger: GetLogger()}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}
	if err := dm.registerMetrics(); err != nil {
		return err
	}

	var err error
	dm.sqlDB, dm.db, err = dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	dm.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	if err := dm.db.PingContext(ctxTimeout); err != nil {
		dm.lastError = err
		_ = dm.db.Close()
		dm.db, dm.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}

	registerModels(dm.db)
	dm.connected = true
	dm.lastError = nil
	dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host)
	return nil
}

func (dm *defaultDatabaseManager) registerMetrics() error {
	if dm.registerer == nil || dm.metrics != nil {
		return nil
	}
	metrics, err := provider.NewMetrics(dm.registerer)
	if err != nil {
		return fmt.Errorf("failed to register provider metrics: %w", err)
	}
	hook, err := NewMetricsHook(dm.registerer)
	if err != nil {
		return fmt.Errorf("failed to register query metrics: %w", err)
	}
	dm.metrics, dm.queryHook = metrics, hook
	return nil
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	switch dm.config.Type {
	case "mysql":
		sqlDB, db, err = dm.createMySQLConnection()
	case "postgres":
		sqlDB, db, err = dm.createPostgreSQLConnection()
	case "sqlite":
		sqlDB, db, err = dm.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
	if dm.config.EnableQueryLog {
		db.AddQueryHook(NewQueryHook(WithEnabled(true), WithWriter(os.Stdout)))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
	if dm.queryHook != nil {
		db.AddQueryHook(dm.queryHook)
	}
	return sqlDB, db, nil
}

func (dm *defaultDatabaseManager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		dm.config.Username,
		dm.config.Password,
		dm.config.Host,
		dm.config.Port,
		dm.config.DBName,
		dm.config.ConnectTimeout,
		dm.config.ReadTimeout,
		dm.config.WriteTimeout,
	)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

// postgresDriverName maps the configured driver to its database/sql name.
// lib/pq registers "postgres" and pgx's stdlib package registers "pgx".
func postgresDriverName(driver string) string {
	if driver == "pgx" {
		return "pgx"
	}
	return "postgres"
}

func (dm *defaultDatabaseManager) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	sslMode := dm.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		dm.config.Username,
		dm.config.Password,
		dm.config.Host,
		dm.config.Port,
		dm.config.DBName,
		sslMode,
		int(dm.config.ConnectTimeout.Seconds()),
	)

	sqlDB, err := sql.Open(postgresDriverName(dm.config.Driver), dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

func sqliteDSN(name string) string {
	if name == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return fmt.Sprintf("%s.db", name)
}

func (dm *defaultDatabaseManager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	sqlDB, err := sql.Open(sqliteshim.ShimName, sqliteDSN(dm.config.DBName))
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

func (dm *defaultDatabaseManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}
	dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db = nil
	dm.sqlDB = nil
	dm.connected = false

	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotConnected
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     dm.connected,
	}
	if dm.db == nil {
		status.LastError = ErrNotConnected.Error()
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := dm.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	stats := dm.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if logger != nil {
		dm.logger = logger
	}
}

// ConnectionFactory returns a factory that borrows a connection from the
// managed pool. The pool is looked up when the factory runs, so a provider
// created before Connect still works once the manager is connected.
func (dm *defaultDatabaseManager) ConnectionFactory() provider.ConnectionFactory {
	return func() (provider.Connection, error) {
		db := dm.GetDB()
		if db == nil {
			return nil, ErrNotConnected
		}
		return provider.NewBunConnection(db), nil
	}
}

// NewProvider returns a provider on the managed pool. The configured isolation
// level and command timeout apply first so opts can override them.
func (dm *defaultDatabaseManager) NewProvider(opts ...provider.Option) *provider.Provider {
	dm.mu.RLock()
	defaults := []provider.Option{provider.WithLogger(dm.logger)}
	if level, err := ParseIsolationLevel(dm.config.IsolationLevel); err == nil && level != sql.LevelDefault {
		defaults = append(defaults, provider.WithIsolationLevel(level))
	}
	if dm.config.CommandTimeout > 0 {
		defaults = append(defaults, provider.WithCommandTimeout(dm.config.CommandTimeout))
	}
	if dm.metrics != nil {
		defaults = append(defaults, provider.WithMetrics(dm.metrics))
	}
	dm.mu.RUnlock()
	return provider.New(dm.ConnectionFactory(), append(defaults, opts...)...)
}
