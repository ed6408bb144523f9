// Package log writes gerritnav's debug log: one line per entry with a
// timestamp, level, category, message and key=value fields. Nothing is
// written until Init is called, which cmd does for --debug or
// GERRITNAV_DEBUG. log_level in the config file sets the minimum level.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a log_level value such as "warn" to its Level. Matching
// ignores case and accepts "warning" for LevelWarn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(s)
	if name == "WARNING" {
		return LevelWarn, nil
	}
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelDebug, fmt.Errorf("unknown log level %q", s)
}

// Category names the part of gerritnav an entry comes from.
type Category string

const (
	CatRouter  Category = "router"  // Route matching and redirects
	CatStore   Category = "store"   // View-state store publications
	CatNav     Category = "nav"     // Navigation loop
	CatLookup  Category = "lookup"  // Change to repository lookups
	CatCache   Category = "cache"   // Lookup cache backends
	CatHistory Category = "history" // Navigation history database
	CatConfig  Category = "config"  // Config loading, saving and reloads
	CatWatcher Category = "watcher" // Config file watching
	CatTrace   Category = "trace"   // Tracing provider lifecycle
)

type sink struct {
	mu       sync.Mutex
	w        io.Writer
	file     *os.File
	minLevel Level
}

var (
	current  *sink
	initOnce sync.Once
)

// Init appends entries to the file at path for the rest of the process.
// Only the first call opens a file. The returned func closes it.
func Init(path string) (func(), error) {
	var err error
	initOnce.Do(func() {
		var f *os.File
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: path comes from --config or log_path
		if err != nil {
			return
		}
		current = &sink{w: f, file: f}
	})
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("log file could not be opened earlier")
	}
	s := current
	return func() {
		if s.file != nil {
			_ = s.file.Close()
		}
	}, nil
}

// InitWriter sends entries to w, replacing any earlier sink. Tests use it to
// capture output.
func InitWriter(w io.Writer) {
	current = &sink{w: w}
}

// SetMinLevel drops entries below level.
func SetMinLevel(level Level) {
	if s := current; s != nil {
		s.mu.Lock()
		s.minLevel = level
		s.mu.Unlock()
	}
}

// Debug, Info, Warn and Error log msg at their level. fields alternate
// keys and values.
func Debug(cat Category, msg string, fields ...any) { write(LevelDebug, cat, msg, fields) }
func Info(cat Category, msg string, fields ...any)  { write(LevelInfo, cat, msg, fields) }
func Warn(cat Category, msg string, fields ...any)  { write(LevelWarn, cat, msg, fields) }
func Error(cat Category, msg string, fields ...any) { write(LevelError, cat, msg, fields) }

// ErrorErr logs at LevelError with err appended as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	write(LevelError, cat, msg, append(fields, "error", fmt.Sprint(err)))
}

// write renders one line:
//
//	2026-10-15T10:45:00 [ERROR] [lookup] message key=value key2=value2
//
// A trailing key without a value is written as key=<missing>.
func write(level Level, cat Category, msg string, fields []any) {
	s := current
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.minLevel {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", time.Now().Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
		} else {
			fmt.Fprintf(&b, " %v=<missing>", fields[i])
		}
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(s.w, b.String())
}
