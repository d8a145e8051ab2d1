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
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer/provider"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
)

// GetDB returns the global Bun database instance.
func GetDB() *bun.DB {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// InitDB initializes the global database using the provided configuration.
func InitDB(cfg *Config) (*bun.DB, error) {
	return InitDBWithRegisterer(cfg, nil)
}

// InitDBWithRegisterer is InitDB with metrics registered on reg.
func InitDBWithRegisterer(cfg *Config, reg prometheus.Registerer) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory(reg)
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	globalMu.Lock()
	globalFactory = factory
	globalMu.Unlock()
	return manager.GetDB(), nil
}

// NewProvider returns a provider on the global database.
func NewProvider(opts ...provider.Option) (*provider.Provider, error) {
	f := GetDatabaseFactory()
	if f == nil {
		return nil, ErrNotInitialized
	}
	return f.NewProvider(opts...)
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	f := globalFactory
	globalFactory = nil
	globalMu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: ErrNotInitialized.Error()}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}
