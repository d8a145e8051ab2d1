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
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	SerializationFailureErr
)

var sqlErrorNames = [...]string{
	"unknown",
	"no_rows",
	"no_index",
	"no_column",
	"exist_index",
	"exist_column",
	"no_table",
	"exist_table",
	"duplicate_key",
	"not_null_violation",
	"foreign_key_violation",
	"check_constraint_violation",
	"data_truncated",
	"invalid_type_cast",
	"serialization_failure",
}

func (e SQLError) String() string {
	if int(e) < len(sqlErrorNames) {
		return sqlErrorNames[e]
	}
	return sqlErrorNames[UnknownErr]
}

var mysqlErrors = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
	1213: SerializationFailureErr,
}

// postgresErrors is keyed by SQLSTATE and shared by pgx and lib/pq.
var postgresErrors = map[string]SQLError{
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42701": ExistColumnErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
	"40001": SerializationFailureErr,
	"40P01": SerializationFailureErr,
}

// ClassifyError maps a driver error to an SQLError. The boolean is false when
// err is not recognised as a database error.
func ClassifyError(err error) (SQLError, bool) {
	if err == nil {
		return UnknownErr, false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NoRowsErr, true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErrors[mysqlErr.Number], true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgresErrors[pgErr.Code], true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return postgresErrors[string(pqErr.Code)], true
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

// classifyMessage covers drivers without typed errors, sqlite mostly.
func classifyMessage(s string) (SQLError, bool) {
	switch {
	case strings.Contains(s, "no such column"):
		return NoColumnErr, true
	case strings.Contains(s, "no such index"):
		return NoIndexErr, true
	case strings.Contains(s, "no such table"):
		return NoTableErr, true
	case strings.Contains(s, "already exists") && strings.Contains(s, "index"):
		return ExistIndexErr, true
	case strings.Contains(s, "already exists") && strings.Contains(s, "table"):
		return ExistTableErr, true
	case strings.Contains(s, "duplicate column name"):
		return ExistColumnErr, true
	case strings.Contains(s, "unique constraint failed"):
		return DuplicateKeyErr, true
	case strings.Contains(s, "not null constraint failed"):
		return NotNullViolationErr, true
	case strings.Contains(s, "foreign key constraint failed"):
		return ForeignKeyViolationErr, true
	case strings.Contains(s, "check constraint failed"):
		return CheckConstraintViolationErr, true
	case strings.Contains(s, "datatype mismatch"):
		return InvalidTypeCastErr, true
	case strings.Contains(s, "database is locked"), strings.Contains(s, "sqlite_busy"):
		return SerializationFailureErr, true
	}
	return UnknownErr, false
}

// IsSqlError reports whether err is a recognised database error and its class.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	sqlErr, is = ClassifyError(err)
	return is, sqlErr
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	kind, _ := ClassifyError(err)
	return kind == DuplicateKeyErr
}
