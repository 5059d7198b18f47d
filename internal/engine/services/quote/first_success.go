package quote

import (
	"context"
	"errors"
)

// ErrEmpty marks an attempt that returned without error but with nothing usable.
var ErrEmpty = errors.New("empty result")

// Strategy is one attempt in a fallback chain.
type Strategy[T any] struct {
	Name    string
	Attempt func(ctx context.Context) (T, error)
}

type Attempt struct {
	Strategy string
	Err      error
}

// Result is Ok with Value and the winning Strategy, or Exhausted (Ok false)
// with every failed attempt in order.
type Result[T any] struct {
	Value    T
	Strategy string
	Ok       bool
	Attempts []Attempt
}

// Names lists the strategies that were tried.
func (r Result[T]) Names() []string {
	out := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		out[i] = a.Strategy
	}
	return out
}

// LastErr returns the error of the final failed attempt, if any.
func (r Result[T]) LastErr() error {
	for i := len(r.Attempts) - 1; i >= 0; i-- {
		if r.Attempts[i].Err != nil {
			return r.Attempts[i].Err
		}
	}
	return nil
}

// FirstSuccess runs strategies in order and stops at the first one that
// returns no error and a value empty does not reject. A nil empty accepts
// every value.
func FirstSuccess[T any](ctx context.Context, strategies []Strategy[T], empty func(T) bool) Result[T] {
	var res Result[T]
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			res.Attempts = append(res.Attempts, Attempt{Strategy: s.Name, Err: err})
			return res
		}

		v, err := s.Attempt(ctx)
		if err == nil && empty != nil && empty(v) {
			err = ErrEmpty
		}
		res.Attempts = append(res.Attempts, Attempt{Strategy: s.Name, Err: err})
		if err != nil {
			continue
		}

		res.Value = v
		res.Strategy = s.Name
		res.Ok = true
		return res
	}
	return res
}
