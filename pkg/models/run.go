package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/copydesk/internal/observability"
	"github.com/harun/copydesk/internal/tracing"
	"github.com/harun/copydesk/pkg/completion"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Completer generates text for a prompt with a given model
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Result is the outcome of a successful Run
type Result struct {
	Text     string
	Model    string
	Attempts int
}

// ExhaustedError is returned when every candidate model failed
type ExhaustedError struct {
	Task     Task
	Attempts []error
}

func (e *ExhaustedError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("all %d models failed for %s: %s", len(e.Attempts), e.Task, strings.Join(msgs, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	return e.Attempts
}

// Run sends prompt to the task's candidates in order and returns the first
// success. The same prompt goes to every candidate. Only a
// *completion.CompletionError moves on to the next candidate; any other
// error is returned as is.
func (p *Policy) Run(ctx context.Context, completer Completer, task Task, prompt string) (Result, error) {
	return p.RunWithLogger(ctx, completer, task, prompt, log.Logger)
}

// RunWithLogger is Run with an explicit base logger
func (p *Policy) RunWithLogger(ctx context.Context, completer Completer, task Task, prompt string, base zerolog.Logger) (Result, error) {
	candidates := p.Candidates(task)
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("no models configured for %s", task)
	}

	logger := tracing.LoggerFromContext(ctx, base).With().Str("task", string(task)).Logger()

	var attempts []error
	for i, model := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if i > 0 {
			observability.RecordFallback(string(task))
			logger.Info().
				Str("model", model).
				Int("attempt", i+1).
				Msg("Falling back to next model")
		}

		text, err := completer.Complete(ctx, prompt, model)
		if err == nil {
			return Result{Text: text, Model: model, Attempts: i + 1}, nil
		}

		attempts = append(attempts, err)
		logger.Warn().
			Str("model", model).
			Int("attempt", i+1).
			Err(err).
			Msg("Model failed")

		// A cancelled caller is not a model failure
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{}, ctx.Err()
		}
		if !completion.IsCompletionError(err) {
			return Result{}, fmt.Errorf("%s with %s: %w", task, model, err)
		}
	}

	observability.RecordExhausted(string(task))
	logger.Error().Int("attempts", len(attempts)).Msg("All models failed")
	return Result{}, &ExhaustedError{Task: task, Attempts: attempts}
}
