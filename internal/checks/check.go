// Package checks runs named pass/fail checks against a subject and
// collects every outcome into a report.
package checks

import (
	"errors"
	"fmt"
	"strings"
)

// Check is a named predicate over a subject of type T.
type Check[T any] interface {
	Name() string
	// Evaluate reports whether the subject passes. A returned error counts
	// as a failure.
	Evaluate(subject T) (bool, error)
}

// CheckFunc adapts a function to Check.
type CheckFunc[T any] struct {
	name string
	fn   func(T) (bool, error)
}

// New returns a check backed by fn.
func New[T any](name string, fn func(T) (bool, error)) CheckFunc[T] {
	return CheckFunc[T]{name: name, fn: fn}
}

func (c CheckFunc[T]) Name() string { return c.name }

func (c CheckFunc[T]) Evaluate(subject T) (bool, error) { return c.fn(subject) }

// Outcome is the result of one check.
type Outcome struct {
	Name   string
	Passed bool
	Err    error
}

func (o Outcome) String() string {
	switch {
	case o.Passed:
		return o.Name + ": ok"
	case o.Err != nil:
		return fmt.Sprintf("%s: FAILED (%v)", o.Name, o.Err)
	default:
		return o.Name + ": FAILED"
	}
}

// Report holds the outcomes of a run in check order.
type Report struct {
	outcomes []Outcome
	passed   bool
}

// Passed reports whether every check passed. An empty report passes.
func (r Report) Passed() bool { return r.passed }

// Outcomes returns a copy of the outcomes in check order.
func (r Report) Outcomes() []Outcome {
	return append([]Outcome(nil), r.outcomes...)
}

// Failures returns the names of the failed checks in check order.
func (r Report) Failures() []string {
	var names []string
	for _, o := range r.outcomes {
		if !o.Passed {
			names = append(names, o.Name)
		}
	}
	return names
}

// Err summarizes the failures as one error, or nil when the report passed.
func (r Report) Err() error {
	if r.passed {
		return nil
	}
	var errs []error
	for _, o := range r.outcomes {
		if o.Passed {
			continue
		}
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		} else {
			errs = append(errs, fmt.Errorf("%s failed", o.Name))
		}
	}
	return errors.Join(errs...)
}

func (r Report) String() string {
	lines := make([]string, 0, len(r.outcomes))
	for _, o := range r.outcomes {
		lines = append(lines, o.String())
	}
	return strings.Join(lines, "\n")
}

// Run evaluates every check against subject in order. No check is skipped
// because an earlier one failed; errors and panics become failed outcomes.
func Run[T any](checks []Check[T], subject T) Report {
	r := Report{outcomes: make([]Outcome, 0, len(checks)), passed: true}
	for _, c := range checks {
		o := evaluate(c, subject)
		r.outcomes = append(r.outcomes, o)
		r.passed = r.passed && o.Passed
	}
	return r
}

func evaluate[T any](c Check[T], subject T) (o Outcome) {
	o.Name = c.Name()
	defer func() {
		if r := recover(); r != nil {
			o.Passed = false
			o.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	ok, err := c.Evaluate(subject)
	if err != nil {
		return Outcome{Name: o.Name, Err: err}
	}
	o.Passed = ok
	return o
}

// Suite is an ordered, named set of checks.
type Suite[T any] struct {
	checks []Check[T]
}

// NewSuite returns a suite holding checks in order.
func NewSuite[T any](checks ...Check[T]) *Suite[T] {
	return &Suite[T]{checks: append([]Check[T](nil), checks...)}
}

// Register appends a check. Names must be unique within the suite.
func (s *Suite[T]) Register(c Check[T]) error {
	for _, existing := range s.checks {
		if existing.Name() == c.Name() {
			return fmt.Errorf("check %q already registered", c.Name())
		}
	}
	s.checks = append(s.checks, c)
	return nil
}

// Names returns the check names in order.
func (s *Suite[T]) Names() []string {
	names := make([]string, 0, len(s.checks))
	for _, c := range s.checks {
		names = append(names, c.Name())
	}
	return names
}

// Run evaluates the suite against subject.
func (s *Suite[T]) Run(subject T) Report {
	return Run(s.checks, subject)
}
