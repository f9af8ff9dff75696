// Package leaderboard keeps cross-match standings in Redis. Room state
// itself is ephemeral; this service is the only thing that survives a
// room teardown.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/errors"
	"github.com/victornm/battlebrains/internal/event"
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

// NewService builds the service and subscribes it to game-over events.
func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameGameOver, func(ctx context.Context, e event.Event) error {
		return s.RecordResult(ctx, e.(domain.EventGameOver))
	})

	return s
}

// Entry is one player's all-time standing.
type Entry struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Wins   float64 `json:"wins"`
}

// RecordResult accumulates every player's match score into the
// all-time points set and credits a win to the winning team's players.
// Standings are keyed by display name; players sharing a name share a
// standing.
func (s *Service) RecordResult(ctx context.Context, e domain.EventGameOver) error {
	for _, p := range e.Players {
		if err := s.redis.ZIncrBy(ctx, s.pointsKey(), float64(p.Score), p.Name).Err(); err != nil {
			return fmt.Errorf("record points: room=%s player=%s: %w", e.Code, p.Name, err)
		}
		if p.Team == e.Winner {
			if err := s.redis.ZIncrBy(ctx, s.winsKey(), 1, p.Name).Err(); err != nil {
				return fmt.Errorf("record win: room=%s player=%s: %w", e.Code, p.Name, err)
			}
		}
	}
	return nil
}

// Top returns the n highest all-time scorers, best first.
func (s *Service) Top(ctx context.Context, n int64) ([]Entry, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.pointsKey(), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessage("leaderboard is empty"))
	}

	entries := make([]Entry, 0, len(res))
	for _, z := range res {
		name := z.Member.(string)
		wins, err := s.redis.ZScore(ctx, s.winsKey(), name).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("get wins: player=%s: %w", name, err)
		}
		entries = append(entries, Entry{
			Name:   name,
			Points: z.Score,
			Wins:   wins,
		})
	}
	return entries, nil
}

func (s *Service) pointsKey() string {
	return fmt.Sprintf("%s:leaderboard:points", s.prefix)
}

func (s *Service) winsKey() string {
	return fmt.Sprintf("%s:leaderboard:wins", s.prefix)
}
