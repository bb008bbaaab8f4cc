// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry configures logging and OpenTelemetry for the server and
// the workflow tests.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"
)

// Cloud Logging special payload fields.
// https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
const (
	logKeyTrace   = "logging.googleapis.com/trace"
	logKeySpanID  = "logging.googleapis.com/spanId"
	logKeySampled = "logging.googleapis.com/trace_sampled"
)

// spanContextLogHandler stamps records logged with a span in their context
// with the trace fields Cloud Logging correlates on.
type spanContextLogHandler struct {
	slog.Handler
}

func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.Any(logKeyTrace, sc.TraceID()),
			slog.Any(logKeySpanID, sc.SpanID()),
			slog.Bool(logKeySampled, sc.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

// replacer renames the level, time and message keys to severity, timestamp
// and message. WARN becomes WARNING, the Cloud Logging severity name.
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a configured level name to a slog.Level. Unknown names map
// to Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newHandler builds the slog handler for the configured format. "text" gives a
// colored console handler for local runs; anything else gives the Cloud
// Logging JSON handler.
func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if strings.EqualFold(format, "text") {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replacer})
}

// SetupLogging installs the default slog logger and routes the standard
// logger to the same writer. JSON logs go to stdout and app.log; text logs go
// to stderr.
func SetupLogging(config *cloud.Config) {
	level := ParseLevel(config.Application.LogLevel)

	var out io.Writer = os.Stderr
	if !strings.EqualFold(config.Application.LogFormat, "text") {
		out = os.Stdout
		// The log file is best effort; a read-only filesystem only loses the copy.
		if file, err := os.Create("app.log"); err == nil {
			out = io.MultiWriter(os.Stdout, file)
		}
	}

	// Route the standard logger through the same writer.
	log.SetOutput(out)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	instrumentedHandler := handlerWithSpanContext(newHandler(out, config.Application.LogFormat, level))
	slog.SetDefault(slog.New(instrumentedHandler))
}
