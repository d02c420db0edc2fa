package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Debug writes a debug-level log line. Suppressed unless LOG_LEVEL is
// debug.
func Debug(msg string, fields map[string]any) {
	write("debug", msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write("info", msg, fields)
}

// Warn writes a warn-level log line. Used for swallowed failures
// (audit writes, notification dispatch) that must not fail the caller.
func Warn(msg string, fields map[string]any) {
	write("warn", msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write("error", msg, fields)
}

// minLevel reads LOG_LEVEL per call so tests can flip it; unset or
// unknown values mean info.
func minLevel() int {
	if rank, ok := levelRank[strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))]; ok {
		return rank
	}
	return levelRank["info"]
}

func write(level, msg string, fields map[string]any) {
	if levelRank[level] < minLevel() {
		return
	}
	entry := make(map[string]any, len(fields)+3)
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["msg"] = msg
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stdout, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
