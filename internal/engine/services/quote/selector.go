// Package quote picks a swap route by walking route restrictions from most
// to least specific until the aggregator answers.
package quote

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/metrics"
)

const (
	TierPreferred    = "preferred"
	TierSingle       = "single"
	TierUnrestricted = "unrestricted"
)

// Aggregator is one network round-trip to the swap aggregator.
type Aggregator interface {
	Quote(ctx context.Context, req domain.QuoteRequest) (*domain.SwapQuote, error)
}

type Selector struct {
	aggregator   Aggregator
	singleRoutes []string
}

// NewSelector builds a selector. singleRoutes is the fixed ladder tried when
// the caller has no preference or its preference fails.
func NewSelector(aggregator Aggregator, singleRoutes []string) *Selector {
	return &Selector{aggregator: aggregator, singleRoutes: singleRoutes}
}

// Strategies returns the ordered fallback chain for req.
func (s *Selector) Strategies(req domain.QuoteRequest, preferred []string) []Strategy[*domain.SwapQuote] {
	out := make([]Strategy[*domain.SwapQuote], 0, len(s.singleRoutes)+2)
	if len(preferred) > 0 {
		out = append(out, s.strategy(TierPreferred+":"+strings.Join(preferred, ","), req.WithDexes(preferred)))
	}
	for _, dex := range s.singleRoutes {
		out = append(out, s.strategy(TierSingle+":"+dex, req.WithDexes([]string{dex})))
	}
	out = append(out, s.strategy(TierUnrestricted, req.WithDexes(nil)))
	return out
}

func (s *Selector) strategy(name string, req domain.QuoteRequest) Strategy[*domain.SwapQuote] {
	return Strategy[*domain.SwapQuote]{
		Name: name,
		Attempt: func(ctx context.Context) (*domain.SwapQuote, error) {
			return s.aggregator.Quote(ctx, req)
		},
	}
}

// Select returns the first non-empty quote, tagged with the tier that
// produced it, and the names of every attempt made.
func (s *Selector) Select(ctx context.Context, req domain.QuoteRequest, preferred []string) (*domain.SwapQuote, []string, error) {
	res := FirstSuccess(ctx, s.Strategies(req, preferred), (*domain.SwapQuote).Empty)

	for _, a := range res.Attempts {
		status := "success"
		if a.Err != nil {
			status = "failed"
			log.Debug().Err(a.Err).Str("strategy", a.Strategy).Msg("[QuoteSelector] attempt failed")
		}
		metrics.QuoteAttempts.WithLabelValues(tierOf(a.Strategy), status).Inc()
	}

	if !res.Ok {
		return nil, res.Names(), &domain.QuoteUnavailableError{Attempts: res.Names(), LastErr: res.LastErr()}
	}

	q := res.Value
	q.Strategy = res.Strategy
	log.Info().
		Str("strategy", res.Strategy).
		Int("attempts", len(res.Attempts)).
		Uint64("expectedOut", q.ExpectedOut).
		Uint64("minimumOut", q.MinimumOut).
		Msg("[QuoteSelector] quote selected")
	return q, res.Names(), nil
}

func tierOf(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}
