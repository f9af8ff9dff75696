package game

import (
	"time"

	"github.com/victornm/battlebrains/internal/domain"
)

// Default contest tuning, matching the shipped game balance.
const (
	defaultPullStrength = 8
	defaultMudThreshold = 100
	defaultBoostAmount  = 8
	defaultFinishLine   = 100
	defaultDamage       = 12
	maxHealth           = 100
)

// Action describes what a correct answer (or a double power-up) did to
// the contest. Type is one of "pull", "boost", "hit", "wrong".
type Action struct {
	Type     string      `json:"type"`
	Team     domain.Team `json:"team,omitempty"`
	Position int         `json:"position,omitempty"`
	Altitude int         `json:"altitude,omitempty"`
	Damage   int         `json:"damage,omitempty"`

	Description string `json:"description,omitempty"`
}

// Contest is the mode-specific progress model a win condition is
// evaluated against. Exactly one variant is active per room. Variants
// are not safe for concurrent use; the owning room serializes access.
type Contest interface {
	Mode() domain.Mode

	// ApplyCorrect mutates the contest for one correct answer by team
	// and returns the action descriptor. Numeric fields stay clamped.
	ApplyCorrect(team domain.Team) *Action

	// ApplyDouble re-applies one correct-answer-equivalent effect
	// without touching the per-team counters.
	ApplyDouble(team domain.Team)

	// Won reports whether the contest has reached a terminal position.
	Won() bool

	// Winner resolves the leading team. Meaningful after Won, but
	// resolves deterministically at any time; ties favor red.
	Winner() domain.Team

	// Freeze / Unfreeze / Shield maintain the advisory per-team flags
	// written by power-ups. Nothing in adjudication reads them.
	Freeze(target domain.Team, until time.Time)
	Unfreeze(target domain.Team)
	Shield(team domain.Team)

	// Fields returns the flat snapshot fields broadcast to clients.
	Fields() map[string]any
}

// NewContest builds the fresh contest variant for mode.
func NewContest(mode domain.Mode) Contest {
	switch mode {
	case domain.ModeTugOfWar:
		return &TugOfWar{
			PullStrength: defaultPullStrength,
			MudThreshold: defaultMudThreshold,
		}
	case domain.ModeRocketRush:
		return &RocketRush{
			BoostAmount: defaultBoostAmount,
			FinishLine:  defaultFinishLine,
		}
	case domain.ModeCatapultClash:
		return &CatapultClash{
			RedHealth:  maxHealth,
			BlueHealth: maxHealth,
			Damage:     defaultDamage,
		}
	default:
		return nil
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// teamFlags holds the transient per-team power-up flags shared by all
// variants. Advisory only: the presentation layer reacts to them, the
// adjudication path never does.
type teamFlags struct {
	RedFrozen     bool
	BlueFrozen    bool
	RedFreezeEnd  time.Time
	BlueFreezeEnd time.Time
	RedShield     bool
	BlueShield    bool
}

func (f *teamFlags) freeze(target domain.Team, until time.Time) {
	if target == domain.TeamRed {
		f.RedFrozen = true
		f.RedFreezeEnd = until
	} else {
		f.BlueFrozen = true
		f.BlueFreezeEnd = until
	}
}

func (f *teamFlags) unfreeze(target domain.Team) {
	if target == domain.TeamRed {
		f.RedFrozen = false
		f.RedFreezeEnd = time.Time{}
	} else {
		f.BlueFrozen = false
		f.BlueFreezeEnd = time.Time{}
	}
}

func (f *teamFlags) shield(team domain.Team) {
	if team == domain.TeamRed {
		f.RedShield = true
	} else {
		f.BlueShield = true
	}
}

func (f *teamFlags) fields(m map[string]any) {
	m["redFrozen"] = f.RedFrozen
	m["blueFrozen"] = f.BlueFrozen
	m["redShield"] = f.RedShield
	m["blueShield"] = f.BlueShield
	if f.RedFrozen {
		m["redFreezeEnd"] = f.RedFreezeEnd.UnixMilli()
	}
	if f.BlueFrozen {
		m["blueFreezeEnd"] = f.BlueFreezeEnd.UnixMilli()
	}
}

// TugOfWar: a signed rope position in [-MudThreshold, +MudThreshold].
// Red pulls negative, blue pulls positive; zero is centered.
type TugOfWar struct {
	RopePosition int
	PullStrength int
	MudThreshold int
	RedPulls     int
	BluePulls    int

	flags teamFlags
}

func (c *TugOfWar) Mode() domain.Mode { return domain.ModeTugOfWar }

func (c *TugOfWar) ApplyCorrect(team domain.Team) *Action {
	c.shift(team)
	if team == domain.TeamRed {
		c.RedPulls++
	} else {
		c.BluePulls++
	}

	return &Action{Type: "pull", Team: team, Position: c.RopePosition}
}

func (c *TugOfWar) ApplyDouble(team domain.Team) {
	c.shift(team)
}

func (c *TugOfWar) shift(team domain.Team) {
	if team == domain.TeamRed {
		c.RopePosition -= c.PullStrength
	} else {
		c.RopePosition += c.PullStrength
	}
	c.RopePosition = clamp(c.RopePosition, -c.MudThreshold, c.MudThreshold)
}

func (c *TugOfWar) Won() bool {
	return c.RopePosition <= -c.MudThreshold || c.RopePosition >= c.MudThreshold
}

func (c *TugOfWar) Winner() domain.Team {
	if c.RopePosition <= -c.MudThreshold {
		return domain.TeamRed
	}
	if c.RopePosition >= c.MudThreshold {
		return domain.TeamBlue
	}
	// Tie query: whoever pulled more, red on equal counts.
	if c.RedPulls >= c.BluePulls {
		return domain.TeamRed
	}
	return domain.TeamBlue
}

func (c *TugOfWar) Freeze(target domain.Team, until time.Time) { c.flags.freeze(target, until) }
func (c *TugOfWar) Unfreeze(target domain.Team)                { c.flags.unfreeze(target) }
func (c *TugOfWar) Shield(team domain.Team)                    { c.flags.shield(team) }

func (c *TugOfWar) Fields() map[string]any {
	m := map[string]any{
		"ropePosition": c.RopePosition,
		"pullStrength": c.PullStrength,
		"mudThreshold": c.MudThreshold,
		"redPulls":     c.RedPulls,
		"bluePulls":    c.BluePulls,
	}
	c.flags.fields(m)
	return m
}

// RocketRush: two independent altitudes racing to FinishLine.
type RocketRush struct {
	RedAltitude  int
	BlueAltitude int
	BoostAmount  int
	FinishLine   int
	RedSpeed     int
	BlueSpeed    int

	flags teamFlags
}

func (c *RocketRush) Mode() domain.Mode { return domain.ModeRocketRush }

func (c *RocketRush) ApplyCorrect(team domain.Team) *Action {
	c.boost(team)

	altitude := c.BlueAltitude
	if team == domain.TeamRed {
		altitude = c.RedAltitude
		c.RedSpeed = c.BoostAmount
	} else {
		c.BlueSpeed = c.BoostAmount
	}

	return &Action{Type: "boost", Team: team, Altitude: altitude}
}

// ApplyDouble raises altitude without recording speed.
func (c *RocketRush) ApplyDouble(team domain.Team) {
	c.boost(team)
}

func (c *RocketRush) boost(team domain.Team) {
	if team == domain.TeamRed {
		c.RedAltitude = clamp(c.RedAltitude+c.BoostAmount, 0, c.FinishLine)
	} else {
		c.BlueAltitude = clamp(c.BlueAltitude+c.BoostAmount, 0, c.FinishLine)
	}
}

func (c *RocketRush) Won() bool {
	return c.RedAltitude >= c.FinishLine || c.BlueAltitude >= c.FinishLine
}

func (c *RocketRush) Winner() domain.Team {
	if c.RedAltitude >= c.FinishLine {
		return domain.TeamRed
	}
	if c.BlueAltitude >= c.FinishLine {
		return domain.TeamBlue
	}
	if c.RedAltitude >= c.BlueAltitude {
		return domain.TeamRed
	}
	return domain.TeamBlue
}

func (c *RocketRush) Freeze(target domain.Team, until time.Time) { c.flags.freeze(target, until) }
func (c *RocketRush) Unfreeze(target domain.Team)                { c.flags.unfreeze(target) }
func (c *RocketRush) Shield(team domain.Team)                    { c.flags.shield(team) }

func (c *RocketRush) Fields() map[string]any {
	m := map[string]any{
		"redAltitude":  c.RedAltitude,
		"blueAltitude": c.BlueAltitude,
		"boostAmount":  c.BoostAmount,
		"finishLine":   c.FinishLine,
		"redSpeed":     c.RedSpeed,
		"blueSpeed":    c.BlueSpeed,
	}
	c.flags.fields(m)
	return m
}

// Hit records the most recent catapult strike for display.
type Hit struct {
	Attacker domain.Team `json:"attacker"`
	Damage   int         `json:"damage"`
}

// CatapultClash: two independent healths in [0, 100]; a correct answer
// damages the opposing castle.
type CatapultClash struct {
	RedHealth  int
	BlueHealth int
	Damage     int
	RedShots   int
	BlueShots  int
	LastHit    *Hit

	flags teamFlags
}

func (c *CatapultClash) Mode() domain.Mode { return domain.ModeCatapultClash }

func (c *CatapultClash) ApplyCorrect(team domain.Team) *Action {
	c.strike(team)
	if team == domain.TeamRed {
		c.RedShots++
	} else {
		c.BlueShots++
	}
	c.LastHit = &Hit{Attacker: team, Damage: c.Damage}

	return &Action{Type: "hit", Team: team, Damage: c.Damage}
}

func (c *CatapultClash) ApplyDouble(team domain.Team) {
	c.strike(team)
}

func (c *CatapultClash) strike(team domain.Team) {
	if team == domain.TeamRed {
		c.BlueHealth = clamp(c.BlueHealth-c.Damage, 0, maxHealth)
	} else {
		c.RedHealth = clamp(c.RedHealth-c.Damage, 0, maxHealth)
	}
}

func (c *CatapultClash) Won() bool {
	return c.RedHealth <= 0 || c.BlueHealth <= 0
}

func (c *CatapultClash) Winner() domain.Team {
	if c.BlueHealth <= 0 {
		return domain.TeamRed
	}
	if c.RedHealth <= 0 {
		return domain.TeamBlue
	}
	if c.RedHealth >= c.BlueHealth {
		return domain.TeamRed
	}
	return domain.TeamBlue
}

func (c *CatapultClash) Freeze(target domain.Team, until time.Time) { c.flags.freeze(target, until) }
func (c *CatapultClash) Unfreeze(target domain.Team)                { c.flags.unfreeze(target) }
func (c *CatapultClash) Shield(team domain.Team)                    { c.flags.shield(team) }

func (c *CatapultClash) Fields() map[string]any {
	m := map[string]any{
		"redHealth":  c.RedHealth,
		"blueHealth": c.BlueHealth,
		"damage":     c.Damage,
		"redShots":   c.RedShots,
		"blueShots":  c.BlueShots,
		"lastHit":    c.LastHit,
	}
	c.flags.fields(m)
	return m
}
