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
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands in the order they were added.
//
// Every run gets a "<name>_execute" span and every command a child span. Before
// each command the chain checks the Go context: a cancelled run records an
// error under the chain's name and stops. A command that is not executable is
// skipped and leaves the piped value untouched; after a command that ran, its
// CtxOut becomes the next command's CtxIn.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain creates an empty chain.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure lets the remaining commands run after one records an error.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends command to the chain.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a Go context; each command checks its own input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

// Execute runs the commands against chCtx.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	// Commands run under their own span; the caller gets its context back.
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if !c.step(outerCtx, chCtx, command) {
			break
		}
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed")
	} else {
		chainSpan.SetStatus(codes.Ok, "")
	}
}

// step runs one command in its own span and reports whether the chain should
// go on.
func (c *BaseChain) step(outerCtx context.Context, chCtx Context, command Command) bool {
	commandCtx, span := c.Tracer.Start(outerCtx, command.GetName())
	defer span.End()

	if err := outerCtx.Err(); err != nil {
		chCtx.AddError(c.GetName(), errors.Wrapf(err, "chain cancelled before %s", command.GetName()))
		span.SetStatus(codes.Error, "chain cancelled")
		return false
	}
	if chCtx.HasErrors() && !c.continueOnFailure {
		span.SetStatus(codes.Error, "previous error on chain")
		return false
	}
	if !command.IsExecutable(chCtx) {
		span.AddEvent("skipped")
		return true
	}

	chCtx.SetContext(commandCtx)
	command.Execute(chCtx)
	chCtx.SetContext(outerCtx)

	if chCtx.HasErrors() {
		span.SetStatus(codes.Error, "command failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	out := chCtx.Get(CtxOut)
	chCtx.Remove(CtxIn)
	if out != nil {
		chCtx.Add(CtxIn, out)
	}
	chCtx.Remove(CtxOut)
	return true
}
