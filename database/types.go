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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/hummer/provider"
)

// AbstractDatabaseManager owns a connection pool and hands out providers
// that each borrow one connection from it.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
	NewProvider(opts ...provider.Option) *provider.Provider
	ConnectionFactory() provider.ConnectionFactory
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database, tune its pool and
// configure the providers built on it. Every field can be overridden by the
// DB_-prefixed environment variable named in its envconfig tag. The full name
// is spelled out so envconfig never falls back to the unprefixed variable.
type ConnectionConfig struct {
	Type     string `yaml:"type" envconfig:"DB_TYPE" validate:"required,oneof=mysql postgres sqlite"`
	Driver   string `yaml:"driver" envconfig:"DB_DRIVER" validate:"omitempty,oneof=pq pgx"` // postgres only
	Host     string `yaml:"host" envconfig:"DB_HOST" validate:"required_unless=Type sqlite"`
	Port     int    `yaml:"port" envconfig:"DB_PORT" validate:"omitempty,min=1,max=65535"`
	Username string `yaml:"username" envconfig:"DB_USERNAME"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" envconfig:"DB_NAME" validate:"required"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS" validate:"min=0"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" envconfig:"DB_CONN_MAX_IDLE_TIME"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"DB_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"DB_WRITE_TIMEOUT"`

	EnableQueryLog bool          `yaml:"enable_query_log" envconfig:"DB_ENABLE_QUERY_LOG"`
	SlowQueryTime  time.Duration `yaml:"slow_query_time" envconfig:"DB_SLOW_QUERY_TIME"`

	IsolationLevel string        `yaml:"isolation_level" envconfig:"DB_ISOLATION_LEVEL" validate:"omitempty,isolation"`
	CommandTimeout time.Duration `yaml:"command_timeout" envconfig:"DB_COMMAND_TIMEOUT" validate:"min=0"`
}

// Config is the top-level configuration file layout.
type Config struct {
	ConnectionConfig ConnectionConfig `yaml:"connection"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		SlowQueryTime:   time.Second * 2,
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

var isolationLevels = map[string]sql.IsolationLevel{
	"":                 sql.LevelDefault,
	"default":          sql.LevelDefault,
	"read_uncommitted": sql.LevelReadUncommitted,
	"read_committed":   sql.LevelReadCommitted,
	"write_committed":  sql.LevelWriteCommitted,
	"repeatable_read":  sql.LevelRepeatableRead,
	"snapshot":         sql.LevelSnapshot,
	"serializable":     sql.LevelSerializable,
	"linearizable":     sql.LevelLinearizable,
}

// ParseIsolationLevel maps names such as "read_committed" or
// "REPEATABLE READ" to a database/sql isolation level.
func ParseIsolationLevel(s string) (sql.IsolationLevel, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	level, ok := isolationLevels[key]
	if !ok {
		return sql.LevelDefault, fmt.Errorf("unknown isolation level: %q", s)
	}
	return level, nil
}

// normalize folds type aliases so validation and connection only see the
// canonical names.
func (c *ConnectionConfig) normalize() {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	switch c.Type {
	case "postgresql":
		c.Type = "postgres"
	case "sqlite3":
		c.Type = "sqlite"
	}
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
}
