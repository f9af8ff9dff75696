package relay

import (
	"encoding/json"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/game"
)

// Inbound intent types.
const (
	intentCreateRoom   = "create-room"
	intentJoinRoom     = "join-room"
	intentSwitchTeam   = "switch-team"
	intentStartGame    = "start-game"
	intentSubmitAnswer = "submit-answer"
	intentUsePowerUp   = "use-powerup"
	intentNextQuestion = "next-question"
	intentRematch      = "rematch"
)

// Outbound message types.
const (
	msgRoomCreated      = "room-created"
	msgRoomJoined       = "room-joined"
	msgJoinError        = "join-error"
	msgPlayerJoined     = "player-joined"
	msgPlayerLeft       = "player-left"
	msgOpponentLeft     = "opponent-left"
	msgTeamsUpdated     = "teams-updated"
	msgGameStarted      = "game-started"
	msgTimerTick        = "timer-tick"
	msgBothWrong        = "both-wrong"
	msgNewQuestion      = "new-question"
	msgAnswerResult     = "answer-result"
	msgStateUpdate      = "state-update"
	msgPowerUpActivated = "powerup-activated"
	msgPowerUpFailed    = "powerup-failed"
	msgGameOver         = "game-over"
	msgRematchStarted   = "rematch-started"
)

// Envelope is the wire frame both directions: a type tag and a payload
// decoded per type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound pairs a message type with its payload for WriteJSON.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type createRoomIntent struct {
	PlayerName string      `json:"playerName"`
	Mode       domain.Mode `json:"mode"`
}

type joinRoomIntent struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// roomIntent covers the intents that carry only a room code.
type roomIntent struct {
	RoomCode string `json:"roomCode"`
}

type submitAnswerIntent struct {
	RoomCode    string `json:"roomCode"`
	AnswerIndex int    `json:"answerIndex"`
}

type usePowerUpIntent struct {
	RoomCode    string         `json:"roomCode"`
	PowerUpType domain.PowerUp `json:"powerUpType"`
}

type roomCreatedPayload struct {
	RoomCode string        `json:"roomCode"`
	Player   domain.Player `json:"player"`
	Team     domain.Team   `json:"team"`
}

type joinErrorPayload struct {
	Error string `json:"error"`
}

type playerJoinedPayload struct {
	Player   domain.Player   `json:"player"`
	TeamRed  []domain.Player `json:"teamRed"`
	TeamBlue []domain.Player `json:"teamBlue"`
}

type playerLeftPayload struct {
	PlayerID string          `json:"playerId"`
	TeamRed  []domain.Player `json:"teamRed"`
	TeamBlue []domain.Player `json:"teamBlue"`
}

type switchedPlayer struct {
	ID   string      `json:"id"`
	Team domain.Team `json:"team"`
}

type teamsUpdatedPayload struct {
	TeamRed        []domain.Player `json:"teamRed"`
	TeamBlue       []domain.Player `json:"teamBlue"`
	SwitchedPlayer switchedPlayer  `json:"switchedPlayer"`
}

type gameStartedPayload struct {
	Mode     domain.Mode          `json:"mode"`
	State    map[string]any       `json:"state"`
	Question *domain.QuestionView `json:"question"`
}

type timerTickPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type newQuestionPayload struct {
	Question *domain.QuestionView `json:"question"`
	State    map[string]any       `json:"state"`
}

type answerResultPayload struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	PointsEarned  int    `json:"pointsEarned"`
}

type stateUpdatePayload struct {
	State      map[string]any `json:"state"`
	LastAction *game.Action   `json:"lastAction"`
	Team       domain.Team    `json:"team"`
	PlayerName string         `json:"playerName"`
}

type powerUpActivatedPayload struct {
	Type   domain.PowerUp `json:"type"`
	Team   domain.Team    `json:"team"`
	State  map[string]any `json:"state"`
	Effect *game.Effect   `json:"effect"`
}

type powerUpFailedPayload struct {
	Reason string `json:"reason"`
}

type gameOverPayload struct {
	Winner domain.Team    `json:"winner"`
	State  map[string]any `json:"state"`
}

type statePayload struct {
	State map[string]any `json:"state"`
}

type rematchStartedPayload struct {
	State    map[string]any       `json:"state"`
	Question *domain.QuestionView `json:"question"`
}

type opponentLeftPayload struct {
	PlayerName string `json:"playerName"`
}
