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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "debug"))
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	consoleMu        sync.Mutex
	consoleOutput    io.Writer = os.Stdout
)

// ConfigureConsoleLogFormat selects "json" or "text" output for loggers
// created afterwards.
func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// SetConsoleOutput redirects every registered logger's console output.
func SetConsoleOutput(w io.Writer) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	consoleOutput = w
}

type consoleWriterHook struct {
	formatter logrus.Formatter
}

func (h *consoleWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleWriterHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	consoleMu.Lock()
	defer consoleMu.Unlock()
	_, err = consoleOutput.Write(b)
	return err
}

// NewLogger returns a named logger and registers it so its level can be
// changed later with SetLoggerLevel.
func NewLogger(name string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10})
	}
	l.AddHook(&consoleWriterHook{formatter: l.Formatter})
	RegisterLogger(name, l)
	return l
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLoggerLevel changes the level of a registered logger. It reports false
// when no logger has that name.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

func SetAllLoggersLevel(lvl logrus.Level) {
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	defaultLevel = lvl
}

// Log4jColorFormatter renders entries the way log4j's pattern layout does:
// timestamp, level, pid, logger name, caller, message, then sorted fields.
type Log4jColorFormatter struct {
	LoggerName string
	NameWidth  int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(colorLevel(fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String())), entry.Level))
	b.WriteByte(' ')
	b.WriteString(colorWrap(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta))
	b.WriteString(" - ")
	b.WriteString(colorWrap(fmt.Sprintf("%*s", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth)), ansiCyan))
	if caller := callerOf(entry); caller != "" {
		b.WriteString(colorWrap(" "+caller, ansiFaint))
	}
	b.WriteString(colorWrap(" :", ansiFaint))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

type JSONLogFormatter struct {
	LoggerName string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	type jsonLogRecord struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Model   string                 `json:"model"`
		Caller  string                 `json:"caller,omitempty"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}
	rec := jsonLogRecord{
		Time:    entry.Time.Format(timestampFormat),
		Level:   entry.Level.String(),
		Model:   f.LoggerName,
		Caller:  callerOf(entry),
		Message: entry.Message,
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func callerOf(entry *logrus.Entry) string {
	if entry.Caller == nil {
		return ""
	}
	dir := filepath.Base(filepath.Dir(entry.Caller.File))
	return dir + "/" + filepath.Base(entry.Caller.File) + ":" + strconv.Itoa(entry.Caller.Line)
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorWrap(s, code string) string { return code + s + ansiReset }

func colorLevel(s string, level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorWrap(s, ansiRed)
	case logrus.WarnLevel:
		return colorWrap(s, ansiYellow)
	case logrus.InfoLevel:
		return colorWrap(s, ansiGreen)
	case logrus.DebugLevel:
		return colorWrap(s, ansiBlue)
	default:
		return colorWrap(s, ansiMagenta)
	}
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
