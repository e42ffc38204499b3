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

// Package cor (Chain of Responsibility) provides the building blocks the
// captioning pipeline is assembled from. This file defines `BaseChain`, the
// default implementation of the `Chain` interface.
//
// Logic Flow:
// A `BaseChain` is itself a `Command`, so chains nest. It runs its commands
// in order against one shared `Context`:
//
//  1. **Telemetry**: A span is opened for the whole chain, and a child span
//     for every command it runs.
//  2. **Stop conditions**: Before each command the chain stops when an error
//     has been recorded (unless `continueOnFailure` is set) or when the Go
//     context is done. A done context is recorded under the chain's name.
//  3. **Execution**: The command's span context is placed on the `Context`
//     while it runs, then the chain's own context is restored.
//  4. **Piping**: The value a command leaves in `CtxOut` is moved to `CtxIn`,
//     so one command's output is the next command's input.
//  5. **Completion**: The chain span is ended with a status reflecting
//     whether any errors were recorded.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain is the default implementation of the Chain interface. It holds the
// commands it runs in order.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool      // Keep running after a command records an error.
	commands          []Command // Commands in execution order.
}

// NewBaseChain is the constructor for BaseChain.
//
// Inputs:
//   - name: The chain's name, used for its span and counters.
//
// Outputs:
//   - *BaseChain: An empty chain that stops at the first failure.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure sets whether the chain keeps going after a command records
// an error.
//
// Inputs:
//   - continueOnFailure: When true every command is attempted; when false the
//     chain stops at the first recorded error.
//
// Outputs:
//   - Chain: The chain itself, for fluent construction.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends command to the end of the chain.
//
// Inputs:
//   - command: Any Command, including another Chain.
//
// Outputs:
//   - Chain: The chain itself, for fluent construction.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a Go context.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

// Execute runs the chain's commands against chCtx. On return the Go context
// on chCtx is the one it was called with.
//
// Inputs:
//   - chCtx: The shared context. Its Go context supplies cancellation and the
//     parent span.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	defer chCtx.SetContext(parentCtx)

	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(c.GetName(), err)
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}

		if chCtx.HasErrors() {
			commandSpan.SetStatus(codes.Error, "error during or after command execution")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		// Pipe this command's output into the next command's input.
		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if !chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	} else {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	}
}
