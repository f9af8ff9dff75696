package game

import (
	"fmt"
	"time"

	"github.com/victornm/battlebrains/internal/domain"
)

const freezeDuration = 5 * time.Second

// Effect describes what a power-up did, for broadcast to the room.
type Effect struct {
	Type        string      `json:"type,omitempty"`
	Description string      `json:"description"`
	Immediate   bool        `json:"immediate,omitempty"`
	Duration    int64       `json:"duration,omitempty"`
	Target      domain.Team `json:"target,omitempty"`
	Team        domain.Team `json:"team,omitempty"`
}

// PowerUpEngine applies power-up effects to a contest. Inventory
// enforcement is the room's job; the engine only mutates contest state.
type PowerUpEngine struct {
	now      func() time.Time
	schedule func(d time.Duration, fn func())
}

// PowerUpConfig lets the owner inject the clock and the deferred-call
// scheduler. The room passes a scheduler that re-enters its lock, so
// the freeze auto-expiry callback mutates contest state safely.
type PowerUpConfig struct {
	Now      func() time.Time
	Schedule func(d time.Duration, fn func())
}

func NewPowerUpEngine(c PowerUpConfig) *PowerUpEngine {
	e := &PowerUpEngine{
		now:      c.Now,
		schedule: c.Schedule,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.schedule == nil {
		e.schedule = func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		}
	}
	return e
}

// Activate mutates contest in place for the given power-up kind and
// returns the effect descriptor. Unknown kinds yield a no-op effect.
func (e *PowerUpEngine) Activate(kind domain.PowerUp, team domain.Team, contest Contest) *Effect {
	switch kind {
	case domain.PowerUpDouble:
		return e.double(team, contest)
	case domain.PowerUpFreeze:
		return e.freeze(team, contest)
	case domain.PowerUpShield:
		return e.shield(team, contest)
	default:
		return &Effect{Description: "Unknown power-up"}
	}
}

// double immediately re-applies one correct-answer-equivalent effect
// for the acting team, not gated by answering correctly.
func (e *PowerUpEngine) double(team domain.Team, contest Contest) *Effect {
	contest.ApplyDouble(team)

	var description string
	switch contest.Mode() {
	case domain.ModeTugOfWar:
		description = fmt.Sprintf("%s team gets a DOUBLE PULL!", team)
	case domain.ModeRocketRush:
		description = fmt.Sprintf("%s rocket gets DOUBLE BOOST!", team)
	case domain.ModeCatapultClash:
		description = fmt.Sprintf("%s fires a DOUBLE SHOT!", team)
	}

	return &Effect{Type: "double", Description: description, Immediate: true}
}

// freeze marks the opposing team frozen for five seconds. The flag is
// advisory: the presentation layer reacts to it, adjudication does not.
func (e *PowerUpEngine) freeze(team domain.Team, contest Contest) *Effect {
	enemy := team.Opponent()
	contest.Freeze(enemy, e.now().Add(freezeDuration))
	e.schedule(freezeDuration, func() {
		contest.Unfreeze(enemy)
	})

	return &Effect{
		Type:        "freeze",
		Description: fmt.Sprintf("%s team is FROZEN for 5 seconds!", enemy),
		Duration:    freezeDuration.Milliseconds(),
		Target:      enemy,
	}
}

// shield sets the acting team's shield flag. Nothing consumes the flag
// yet; it is emitted for the presentation layer.
func (e *PowerUpEngine) shield(team domain.Team, contest Contest) *Effect {
	contest.Shield(team)

	return &Effect{
		Type:        "shield",
		Description: fmt.Sprintf("%s team activated a SHIELD!", team),
		Team:        team,
	}
}
