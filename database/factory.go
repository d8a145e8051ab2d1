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
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer/provider"
)

var ErrNotInitialized = errors.New("database manager not created")

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager    AbstractDatabaseManager
	logger     Logger
	validate   *validator.Validate
	registerer prometheus.Registerer
}

// NewDatabaseFactory returns a new database factory using the global logger.
// Metrics are registered with reg when it is not nil.
func NewDatabaseFactory(reg prometheus.Registerer) *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger:     GetLogger(),
		validate:   newValidator(),
		registerer: reg,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("isolation", func(fl validator.FieldLevel) bool {
		_, err := ParseIsolationLevel(fl.Field().String())
		return err == nil
	})
	return v
}

// CreateFromConfig applies DB_* environment overrides to cfg, validates it and
// constructs a database manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	cfg.normalize()
	if err := f.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var opts []ManagerOption
	if f.registerer != nil {
		opts = append(opts, WithRegisterer(f.registerer))
	}
	manager := NewDatabaseManager(cfg, opts...)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// InitializeDatabase connects the manager created by CreateFromConfig.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return ErrNotInitialized
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// NewProvider returns a provider on the managed database.
func (f *BaseDatabaseFactory) NewProvider(opts ...provider.Option) (*provider.Provider, error) {
	if f.manager == nil {
		return nil, ErrNotInitialized
	}
	return f.manager.NewProvider(opts...), nil
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     ErrNotInitialized.Error(),
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
