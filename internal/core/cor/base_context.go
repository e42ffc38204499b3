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
// captioning pipeline is assembled from. This file defines `BaseContext`, the
// default implementation of the `Context` interface.
//
// The `Context` is the property bag handed from command to command. Commands
// read their inputs from it and write their results back for the next
// command. This implementation holds:
//   - A map of arbitrary values (`data`).
//   - A map of errors keyed by the command that recorded them (`errors`).
//   - Cleanup functions run when the context is closed (`cleanups`).
//   - A Go `context.Context` for cancellation and the active span.
package cor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

type cleanup struct {
	name string
	fn   func() error
}

// BaseContext is the default Context implementation.
type BaseContext struct {
	data     map[string]interface{} // Values shared between commands.
	errors   map[string]error       // Errors keyed by the command that produced them.
	cleanups []cleanup              // Run in reverse order by Close.
	context  context.Context        // Cancellation and the active span.
}

// NewBaseContext is the constructor for BaseContext.
//
// Outputs:
//   - Context: An empty context. Callers set a Go context with SetContext
//     and defer Close.
func NewBaseContext() Context {
	return &BaseContext{
		data:   make(map[string]interface{}),
		errors: make(map[string]error),
	}
}

// SetContext replaces the Go context. BaseChain uses it to nest command spans.
//
// Inputs:
//   - context: The Go context commands will see from GetContext.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// AddCleanup registers fn to run when the context is closed.
//
// Inputs:
//   - name: Identifies the cleanup in logs.
//   - fn: The cleanup. A returned error is logged only.
func (c *BaseContext) AddCleanup(name string, fn func() error) {
	c.cleanups = append(c.cleanups, cleanup{name: name, fn: fn})
}

// Close runs cleanups last-in first-out. Failures are logged and do not stop
// the remaining cleanups.
func (c *BaseContext) Close() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		item := c.cleanups[i]
		if err := item.fn(); err != nil {
			slog.Warn("cleanup failed", "name", item.name, "error", err)
		}
	}
	c.cleanups = nil
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Err joins every recorded error, each prefixed with its key.
//
// Outputs:
//   - error: nil when nothing was recorded. Otherwise the errors ordered by
//     key, so errors.Is and errors.As see every one of them.
func (c *BaseContext) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.errors))
	for k := range c.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, c.errors[k]))
	}
	return errors.Join(errs...)
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
