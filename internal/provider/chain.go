package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/model"
)

// DefaultChainTimeout bounds the whole fallback chain.
const DefaultChainTimeout = 30 * time.Second

// Chain tries each source in order and returns the first non-empty schedule.
// The whole attempt runs under one master timeout, however many sources are
// tried.
type Chain struct {
	sources []Source
	timeout time.Duration
	logger  *slog.Logger
}

// NewChain creates a fallback chain. A zero timeout uses DefaultChainTimeout.
func NewChain(timeout time.Duration, logger *slog.Logger, sources ...Source) *Chain {
	if timeout <= 0 {
		timeout = DefaultChainTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{sources: sources, timeout: timeout, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

// FetchSchedule returns the first source's non-empty result. When every
// source fails, the first source's error is returned.
func (c *Chain) FetchSchedule(ctx context.Context, req Request) ([]model.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var firstErr error
	for _, src := range c.sources {
		games, err := src.FetchSchedule(ctx, req)
		if err == nil && len(games) > 0 {
			c.logger.Info("Schedule fetched",
				"source", src.Name(), "league", req.LeagueID, "team", req.TeamID, "games", len(games))
			return games, nil
		}
		if ctx.Err() != nil {
			return nil, &Error{Code: CodeTimeout, Source: c.Name(), Err: ctx.Err()}
		}
		if err == nil {
			err = &Error{Code: CodeNoSchedule, Source: src.Name()}
		}
		c.logger.Warn("Schedule source failed, trying next",
			"source", src.Name(), "code", CodeOf(err), "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = &Error{Code: CodeNoSchedule, Source: c.Name()}
	}
	return nil, firstErr
}
