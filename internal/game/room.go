// Package game implements the room coordination engine: team and
// player bookkeeping, answer adjudication, mode-specific contest state,
// power-ups, round timing and win detection.
package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/errors"
	"github.com/victornm/battlebrains/internal/quiz"
)

const (
	answerPoints = 10
	streakBonus  = 5

	// DefaultRoundDuration is the per-question window when the room
	// config does not override it.
	DefaultRoundDuration = 15 * time.Second
)

// RoomConfig configures one room. Code and Mode are required;
// everything else has working defaults.
type RoomConfig struct {
	Code      string
	Mode      domain.Mode
	Questions []domain.Question

	// RoundDuration is the single owner of the per-round countdown
	// length.
	RoundDuration time.Duration

	// NewTicker is injectable for timer tests.
	NewTicker func(d time.Duration) Ticker

	Now func() time.Time
}

// Room is one isolated match: two teams, one contest, one quiz cursor,
// at most one live round timer. All public operations serialize on the
// room's own lock; rooms never share mutable state.
type Room struct {
	mu sync.Mutex

	code   string
	mode   domain.Mode
	status domain.Status

	players map[string]*domain.Player
	quiz    *quiz.Engine
	contest Contest

	powerUps      *PowerUpEngine
	roundDuration time.Duration
	newTicker     func(d time.Duration) Ticker
	timer         *roundTimer

	// roundAnswered tracks whether any correct answer landed in the
	// current round, for the both-wrong notice on round expiry.
	roundAnswered bool
}

func NewRoom(c RoomConfig) (*Room, error) {
	if !c.Mode.Valid() {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown game mode %q", c.Mode))
	}

	if c.RoundDuration <= 0 {
		c.RoundDuration = DefaultRoundDuration
	}
	if c.NewTicker == nil {
		c.NewTicker = newRealTicker
	}

	r := &Room{
		code:          c.Code,
		mode:          c.Mode,
		status:        domain.StatusWaiting,
		players:       make(map[string]*domain.Player),
		quiz:          quiz.NewEngine(c.Questions),
		contest:       NewContest(c.Mode),
		roundDuration: c.RoundDuration,
		newTicker:     c.NewTicker,
	}

	// The freeze auto-expiry callback re-enters the room lock, so it
	// never mutates contest state concurrently with an operation.
	r.powerUps = NewPowerUpEngine(PowerUpConfig{
		Now: c.Now,
		Schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, func() {
				r.mu.Lock()
				defer r.mu.Unlock()
				fn()
			})
		},
	})

	return r, nil
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) Mode() domain.Mode {
	return r.mode
}

func (r *Room) Status() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// AddPlayer creates a player with zero score, zero streak and a full
// starting loadout. Names need not be unique; empty names get a
// generated one.
func (r *Room) AddPlayer(id, name string, team domain.Team) domain.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("Player%d", len(r.players)+1)
	}

	p := &domain.Player{
		ID:       id,
		Name:     name,
		Team:     team,
		PowerUps: domain.StartingLoadout(),
	}
	r.players[id] = p
	return *p
}

// RemovePlayer deletes the player. No other player's state changes;
// declaring the room empty is the caller's concern.
func (r *Room) RemovePlayer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Players returns a copy of the full roster.
func (r *Room) Players() []domain.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]domain.Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, *p)
	}
	sortPlayers(list)
	return list
}

// TeamPlayers returns a copy of one team's roster.
func (r *Room) TeamPlayers(team domain.Team) []domain.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.teamPlayersLocked(team)
}

func (r *Room) teamPlayersLocked(team domain.Team) []domain.Player {
	list := make([]domain.Player, 0)
	for _, p := range r.players {
		if p.Team == team {
			list = append(list, *p)
		}
	}
	sortPlayers(list)
	return list
}

func sortPlayers(list []domain.Player) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// SmallestTeam returns the team with fewer players; red on ties, so
// auto-assignment is deterministic.
func (r *Room) SmallestTeam() domain.Team {
	r.mu.Lock()
	defer r.mu.Unlock()

	var red, blue int
	for _, p := range r.players {
		if p.Team == domain.TeamRed {
			red++
		} else {
			blue++
		}
	}
	if red <= blue {
		return domain.TeamRed
	}
	return domain.TeamBlue
}

// SwitchTeam flips the player between red and blue unconditionally.
// Unknown connections are a silent no-op, reported via ok=false.
func (r *Room) SwitchTeam(id string) (domain.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return "", false
	}
	p.Team = p.Team.Opponent()
	return p.Team, true
}

// Start begins (or restarts) the match: fresh contest state, quiz
// rewound, every player's score, streak and loadout reset.
func (r *Room) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restartLocked()
}

// Reset performs the rematch reset. Roster and team assignments are
// preserved; everything else returns to the starting state.
func (r *Room) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restartLocked()
}

func (r *Room) restartLocked() {
	r.status = domain.StatusPlaying
	r.contest = NewContest(r.mode)
	r.quiz.Reset()
	r.roundAnswered = false
	for _, p := range r.players {
		p.Score = 0
		p.Streak = 0
		p.PowerUps = domain.StartingLoadout()
	}
}

// Finish marks the room terminal until a rematch. Reports whether
// this call performed the transition; callers use that to declare the
// result exactly once even when several paths detect the win.
func (r *Room) Finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == domain.StatusFinished {
		return false
	}
	r.status = domain.StatusFinished
	return true
}

// CurrentQuestion returns the public view of the current question with
// the round time limit filled in, or nil past end-of-list.
func (r *Room) CurrentQuestion() *domain.QuestionView {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.quiz.Current()
	if v == nil {
		return nil
	}
	v.TimeLimit = int(r.roundDuration / time.Second)
	return v
}

// NextQuestion advances the quiz cursor and opens a new round.
func (r *Room) NextQuestion() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.quiz.Advance()
	r.roundAnswered = false
}

// AnswerResult is the structured outcome of one submission. A nil
// Action with Correct=false marks the inert no-effect case (unknown
// player or no current question).
type AnswerResult struct {
	Correct       bool        `json:"correct"`
	CorrectAnswer string      `json:"correctAnswer,omitempty"`
	Action        *Action     `json:"action"`
	Team          domain.Team `json:"team,omitempty"`
	PlayerName    string      `json:"playerName,omitempty"`
	PointsEarned  int         `json:"pointsEarned"`
}

// NoEffect reports whether the submission changed nothing.
func (res AnswerResult) NoEffect() bool {
	return res.Action == nil
}

// SubmitAnswer adjudicates one submission against the current
// question's authoritative correct index. Every call is adjudicated
// independently; the room keeps no per-round submission throttle.
func (r *Room) SubmitAnswer(id string, optionIndex int) AnswerResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return AnswerResult{}
	}

	q := r.quiz.CurrentFull()
	if q == nil {
		return AnswerResult{}
	}

	correctAnswer := q.Options[q.CorrectIndex]

	if optionIndex != q.CorrectIndex {
		p.Streak = 0
		return AnswerResult{
			Correct:       false,
			CorrectAnswer: correctAnswer,
			Action:        &Action{Type: "wrong", Description: "Incorrect!"},
			Team:          p.Team,
			PlayerName:    p.Name,
		}
	}

	// Streak bonus begins once the streak carried into this answer
	// exceeds three, i.e. on the fifth consecutive correct answer.
	points := answerPoints
	if p.Streak > 3 {
		points += streakBonus
	}
	p.Streak++
	p.Score += points
	r.roundAnswered = true

	action := r.contest.ApplyCorrect(p.Team)

	return AnswerResult{
		Correct:       true,
		CorrectAnswer: correctAnswer,
		Action:        action,
		Team:          p.Team,
		PlayerName:    p.Name,
		PointsEarned:  points,
	}
}

// PowerUpResult is the structured outcome of a power-up activation.
type PowerUpResult struct {
	Success bool        `json:"success"`
	Reason  string      `json:"reason,omitempty"`
	Team    domain.Team `json:"team,omitempty"`
	Effect  *Effect     `json:"effect,omitempty"`
}

// UsePowerUp consumes one unit from the player's inventory and applies
// the effect. Power-ups are single-use and never replenished mid-game.
func (r *Room) UsePowerUp(id string, kind domain.PowerUp) PowerUpResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return PowerUpResult{Success: false, Reason: "Player not found"}
	}

	if !p.ConsumePowerUp(kind) {
		return PowerUpResult{Success: false, Reason: "Power-up not available"}
	}

	effect := r.powerUps.Activate(kind, p.Team, r.contest)
	return PowerUpResult{Success: true, Team: p.Team, Effect: effect}
}

// CheckWin reports whether the contest reached its win condition.
func (r *Room) CheckWin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contest.Won()
}

// Winner resolves the winning (or leading) team; ties favor red.
func (r *Room) Winner() domain.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contest.Winner()
}

// RoundAnswered reports whether any correct answer landed since the
// current round opened.
func (r *Room) RoundAnswered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roundAnswered
}

// Snapshot is the full state broadcast to every room member: common
// room fields plus the mode-specific contest fields spread flat.
func (r *Room) Snapshot() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var redScore, blueScore int
	for _, p := range r.players {
		if p.Team == domain.TeamRed {
			redScore += p.Score
		} else {
			blueScore += p.Score
		}
	}

	m := r.contest.Fields()
	m["mode"] = r.mode
	m["status"] = r.status
	m["scores"] = map[domain.Team]int{
		domain.TeamRed:  redScore,
		domain.TeamBlue: blueScore,
	}
	m["teamRed"] = r.teamPlayersLocked(domain.TeamRed)
	m["teamBlue"] = r.teamPlayersLocked(domain.TeamBlue)
	m["questionIndex"] = r.quiz.Index()
	m["totalQuestions"] = r.quiz.Len()
	return m
}
