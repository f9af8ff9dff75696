package domain

// Team is one of the two sides players are partitioned into.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Mode selects which contest a room runs.
type Mode string

const (
	ModeTugOfWar      Mode = "tug-of-war"
	ModeRocketRush    Mode = "rocket-rush"
	ModeCatapultClash Mode = "catapult-clash"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeTugOfWar, ModeRocketRush, ModeCatapultClash:
		return true
	}
	return false
}

// Status is the room lifecycle state. Transitions only move forward,
// except finished→playing on an explicit rematch.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// PowerUp is a single-use, player-held ability.
type PowerUp string

const (
	PowerUpDouble PowerUp = "double"
	PowerUpFreeze PowerUp = "freeze"
	PowerUpShield PowerUp = "shield"
)

// StartingLoadout returns the inventory every player begins a match with.
func StartingLoadout() []PowerUp {
	return []PowerUp{PowerUpDouble, PowerUpFreeze, PowerUpShield}
}

// Player is one connected participant. Owned exclusively by its room.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Team     Team      `json:"team"`
	Score    int       `json:"score"`
	Streak   int       `json:"streak"`
	PowerUps []PowerUp `json:"powerUps"`
}

// ConsumePowerUp removes one unit of kind from the inventory and
// reports whether the power-up was held.
func (p *Player) ConsumePowerUp(kind PowerUp) bool {
	for i, pu := range p.PowerUps {
		if pu == kind {
			p.PowerUps = append(p.PowerUps[:i], p.PowerUps[i+1:]...)
			return true
		}
	}
	return false
}

// Question is the internal view of one quiz question, including the
// correct option index. Never transmitted to clients.
type Question struct {
	QuestionID   string
	Text         string
	Options      []string
	CorrectIndex int
	Category     string
	Difficulty   string
}

// View returns the public projection of the question. The correct
// answer index is deliberately absent.
func (q Question) View() QuestionView {
	return QuestionView{
		QuestionID: q.QuestionID,
		Text:       q.Text,
		Options:    q.Options,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

// QuestionView is what clients receive for the current round.
type QuestionView struct {
	QuestionID string   `json:"id"`
	Text       string   `json:"question"`
	Options    []string `json:"options"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	TimeLimit  int      `json:"timeLimit"`
}
