package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"photolog/internal/job"
	"photolog/internal/logging"
)

// Step is one entry of a chain. An empty Next marks the terminal step.
type Step struct {
	Name   string
	Action Action
	Next   string
}

// Chain is a linear, acyclic sequence of steps.
type Chain struct {
	name   string
	first  string
	order  []string
	steps  map[string]Step
	logger *slog.Logger
}

// NewChain validates steps and builds a chain. Steps may be listed in any
// order; exactly one step must have no predecessor and following Next from
// it must visit every step once.
func NewChain(name string, steps ...Step) (*Chain, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", ErrInvalidChain, name)
	}
	table := make(map[string]Step, len(steps))
	predecessors := make(map[string]int, len(steps))
	for _, step := range steps {
		if strings.TrimSpace(step.Name) == "" {
			return nil, fmt.Errorf("%w: %s has an unnamed step", ErrInvalidChain, name)
		}
		if step.Action == nil {
			return nil, fmt.Errorf("%w: %s step %q has no action", ErrInvalidChain, name, step.Name)
		}
		if _, dup := table[step.Name]; dup {
			return nil, fmt.Errorf("%w: %s step %q listed twice", ErrInvalidChain, name, step.Name)
		}
		table[step.Name] = step
		if step.Next != "" {
			predecessors[step.Next]++
		}
	}

	first := ""
	for _, step := range steps {
		if step.Next != "" {
			if _, ok := table[step.Next]; !ok {
				return nil, fmt.Errorf("%w: %s step %q points at unknown %q", ErrInvalidChain, name, step.Name, step.Next)
			}
		}
		switch predecessors[step.Name] {
		case 0:
			if first != "" {
				return nil, fmt.Errorf("%w: %s has two entry steps (%q, %q)", ErrInvalidChain, name, first, step.Name)
			}
			first = step.Name
		case 1:
		default:
			return nil, fmt.Errorf("%w: %s step %q has several predecessors", ErrInvalidChain, name, step.Name)
		}
	}
	if first == "" {
		return nil, fmt.Errorf("%w: %s is cyclic", ErrInvalidChain, name)
	}

	order := make([]string, 0, len(table))
	for current := first; current != ""; current = table[current].Next {
		if len(order) == len(table) {
			return nil, fmt.Errorf("%w: %s is cyclic", ErrInvalidChain, name)
		}
		order = append(order, current)
	}
	if len(order) != len(table) {
		return nil, fmt.Errorf("%w: %s has unreachable steps", ErrInvalidChain, name)
	}
	return &Chain{name: name, first: first, order: order, steps: table, logger: logging.NewNop()}, nil
}

// WithLogger returns c logging to logger.
func (c *Chain) WithLogger(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	cp := *c
	cp.logger = logger
	return &cp
}

// Name returns the chain's kind name.
func (c *Chain) Name() string { return c.name }

// First returns the entry step new records start at.
func (c *Chain) First() string { return c.first }

// Steps returns step names in execution order.
func (c *Chain) Steps() []string {
	return append([]string(nil), c.order...)
}

// Has reports whether name is a step of c.
func (c *Chain) Has(name string) bool {
	_, ok := c.steps[name]
	return ok
}

// Process runs the record's current step, or bypasses it when the step is
// in the record's skip set. Errors from the action are returned unchanged.
func (c *Chain) Process(ctx context.Context, rec *job.Record) (*job.Record, error) {
	step, ok := c.steps[rec.Step]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a %s step", ErrUnknownStep, rec.Step, c.name)
	}
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldStep, step.Name))

	if rec.HasSkip(step.Name) {
		logger.Info("step skipped",
			logging.String(logging.FieldEventType, "step_skipped"),
			logging.String("next_step", step.Next),
		)
		return advance(rec, step.Next), nil
	}

	if rec.Attempt > 0 {
		logger.Info("step retry", logging.Int(logging.FieldAttempt, rec.Attempt))
	} else {
		logger.Debug("step started")
	}
	result, err := step.Action(ctx, rec)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return advance(result, step.Next), nil
}

// advance moves rec to next with a fresh attempt counter; an empty next
// means the job is complete.
func advance(rec *job.Record, next string) *job.Record {
	if next == "" {
		return nil
	}
	rec.Step = next
	rec.Attempt = 0
	return rec
}
