// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"

	"github.com/nestready/nestready/pkg/cache"
	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/chatcontext"
	"github.com/nestready/nestready/services/advisor/guardrails"
)

// ExecOutcome labels how a tool call resolved, for metrics.
type ExecOutcome string

const (
	OutcomeSuccess  ExecOutcome = "success"
	OutcomeCacheHit ExecOutcome = "cache_hit"
	OutcomeRejected ExecOutcome = "rejected"
	OutcomeError    ExecOutcome = "error"
)

// Executor runs validated tool calls with shared-cache reuse.
//
// # Description
//
// Execute is the single entry point the chat loop (and any external
// adapter) uses. Order of operations: registry lookup, parameter
// validation, cache probe, handler, cache store. A validation failure is
// NOT an error: the violation text is returned as the tool result so the
// model can self-correct.
//
// # Thread Safety
//
// Safe for concurrent use.
type Executor struct {
	registry  *Registry
	validator *guardrails.ParamValidator
	cache     *cache.TTLCache
	logger    *logging.Logger
}

// NewExecutor wires an executor. cache may be nil to disable result reuse.
func NewExecutor(registry *Registry, validator *guardrails.ParamValidator, c *cache.TTLCache, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		registry:  registry,
		validator: validator,
		cache:     c,
		logger:    logger,
	}
}

// Execute runs one tool call.
//
// # Outputs
//
//   - string: the tool result JSON, or the validation-violation text.
//   - ExecOutcome: how the call resolved.
//   - error: non-nil only for unknown tools or handler failures.
func (e *Executor) Execute(ctx context.Context, binding *Binding, name string, input map[string]any) (string, ExecOutcome, error) {
	handler, ok := e.registry.Handler(name)
	if !ok {
		return "", OutcomeError, fmt.Errorf("unknown tool %q", name)
	}

	if err := e.validator.Validate(name, input); err != nil {
		// Returned to the model as the tool result, never executed.
		e.logger.Info("tool call rejected", "tool", name, "violation", err.Error())
		return err.Error(), OutcomeRejected, nil
	}

	cacheKey := chatcontext.ToolCacheKey(binding.Fingerprint(), name, input)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			e.logger.Debug("tool cache hit", "tool", name)
			return cached.(string), OutcomeCacheHit, nil
		}
	}

	result, err := handler(ctx, binding, input)
	if err != nil {
		e.logger.Error("tool execution failed", "tool", name, "error", err)
		return "", OutcomeError, err
	}

	if e.cache != nil {
		e.cache.Set(cacheKey, result, chatcontext.ToolTTL(name))
	}
	e.logger.Debug("tool executed", "tool", name, "result_bytes", len(result))
	return result, OutcomeSuccess, nil
}
