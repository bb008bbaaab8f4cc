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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope shared by every command and wrapper.
const MeterName = "github.com/jaycherian/gcp-go-media-verify"

// BaseCommand carries what every command needs: a name, the input and output
// keys, a tracer and a pair of "<name>.counter.success" / "<name>.counter.error"
// counters. Concrete commands embed it and implement Execute.
type BaseCommand struct {
	Name            string
	InputParamName  string // Empty means CtxIn.
	OutputParamName string // Empty means CtxOut.
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter
	ErrorCounter    metric.Int64Counter
}

// NewBaseCommand creates a BaseCommand whose tracer and counters are named
// after the command.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(MeterName)
	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: newCounter(meter, name, "success"),
		ErrorCounter:   newCounter(meter, name, "error"),
	}
}

// newCounter falls back to a no-op counter so a command never holds a nil
// instrument.
func newCounter(meter metric.Meter, name, outcome string) metric.Int64Counter {
	counter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.%s", name, outcome))
	if err != nil {
		slog.Warn("error creating counter", "command", name, "outcome", outcome, "error", err)
		return noop.Int64Counter{}
	}
	return counter
}

// GetName returns the command name used for spans, counters and error keys.
func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a Go context and a value under the input key.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

// GetInputParam returns the context key the command reads.
func (c *BaseCommand) GetInputParam() string {
	if c.InputParamName == "" {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam returns the context key the command writes.
func (c *BaseCommand) GetOutputParam() string {
	if c.OutputParamName == "" {
		return CtxOut
	}
	return c.OutputParamName
}

// GetTracer returns the tracer named after the command.
func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

// GetMeter returns the shared cor meter.
func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

// GetSuccessCounter returns <name>.counter.success.
func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

// GetErrorCounter returns <name>.counter.error.
func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}
