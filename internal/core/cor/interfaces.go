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

// Package cor is a small chain-of-responsibility runtime. A workflow is a
// Chain of Commands sharing one Context; each command reads the value under
// its input key and leaves a result under its output key, and the chain pipes
// one into the next.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Keys of the value piped between commands. After every executed command the
// chain moves CtxOut to CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the state of one workflow run: named values, the errors recorded
// by commands, temp files to remove, and the Go context carrying cancellation
// and the current span.
type Context interface {
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores value under key and returns the Context for chaining.
	Add(key string, value any) Context
	// Get returns the value under key, or nil.
	Get(key string) any
	Remove(key string)

	// AddError records err under key, normally the failing command's name.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err returns the first error recorded, or nil.
	Err() error

	// AddTempFile registers a file that Close removes.
	AddTempFile(file string)
	GetTempFiles() []string
	// Close removes the registered temp files. Whoever creates the Context
	// defers it.
	Close()
}

// Executable is anything that runs against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is one step of a workflow. A command value is shared by every run
// of its workflow, so per-run state lives in the Context, never on the
// command.
type Command interface {
	Executable

	GetName() string
	// GetInputParam and GetOutputParam name the keys the command reads from
	// and writes to. They default to CtxIn and CtxOut.
	GetInputParam() string
	GetOutputParam() string
	// IsExecutable reports whether the Context holds what the command needs.
	// The chain skips a command that is not executable.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain runs its commands in order. It is a Command itself, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure keeps the chain running after a command records an
	// error. By default the chain stops at the first error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
