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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" WARNING "))
	assert.Equal(t, logrus.TraceLevel, ParseLogLevel("trace"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}

func TestNewLoggerWritesFieldsToConsole(t *testing.T) {
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	defer SetConsoleOutput(os.Stdout)

	l := NewLogger("TEST")
	l.WithField("state", "active").Warn("transaction rolled back")

	out := buf.String()
	assert.Contains(t, out, "transaction rolled back")
	assert.Contains(t, out, "state=active")
	assert.Contains(t, out, "WARN")
}

func TestSetLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	defer SetConsoleOutput(os.Stdout)

	l := NewLogger("LEVELS")
	require.True(t, SetLoggerLevel("LEVELS", "error"))
	l.Info("hidden")
	assert.Empty(t, buf.String())

	assert.False(t, SetLoggerLevel("missing", "debug"))
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "DATABASE"}
	entry := logrus.NewEntry(logrus.New()).WithField("error", errors.New("boom"))
	entry.Message = "close failed"
	entry.Level = logrus.ErrorLevel

	b, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "DATABASE", rec["model"])
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, map[string]interface{}{"error": "boom"}, rec["fields"])
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("HUMMER_TEST_STR", "x")
	t.Setenv("HUMMER_TEST_BOOL", "true")
	assert.Equal(t, "x", EnvDefaultString("HUMMER_TEST_STR", "y"))
	assert.Equal(t, "y", EnvDefaultString("HUMMER_TEST_UNSET", "y"))
	assert.True(t, EnvDefaultBool("HUMMER_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("HUMMER_TEST_UNSET", true))
}
