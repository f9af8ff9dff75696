// Package relay is the websocket transport layer: it binds connections
// to rooms, routes inbound intents to the right room and fans state
// broadcasts out to every room member. All adjudication happens in the
// game package; the relay only decides what becomes a private reply
// and what becomes a broadcast.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/errors"
	"github.com/victornm/battlebrains/internal/event"
	"github.com/victornm/battlebrains/internal/game"
	"github.com/victornm/battlebrains/internal/registry"
)

const broadcastConcurrency = 8

// Join rejections, surfaced to the initiating client only. The Message
// strings are displayed verbatim.
var (
	errRoomNotFound   = errors.New(errors.CodeNotFound, errors.WithMessage("Room not found!"))
	errGameInProgress = errors.New(errors.CodeFailedPrecondition, errors.WithMessage("Game already in progress!"))
)

// Conn is the subset of *websocket.Conn the relay needs; tests inject
// fakes through it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// session is one connected player. The write mutex serializes
// WriteJSON calls, which gorilla connections require.
type session struct {
	id   string
	conn Conn

	writeMu  sync.Mutex
	roomCode string
}

func (s *session) send(typ string, data any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(Outbound{Type: typ, Data: data}); err != nil {
		slog.Error("relay: write failed", "session", s.id, "type", typ, "error", err)
	}
}

// Config wires the relay's collaborators.
type Config struct {
	Registry *registry.Registry
	EventBus *event.Bus

	// Questions seed every new room's quiz.
	Questions []domain.Question

	// RoundDuration overrides the per-round countdown; zero keeps the
	// game default.
	RoundDuration time.Duration
}

type Relay struct {
	registry  *registry.Registry
	bus       *event.Bus
	questions []domain.Question
	roundDur  time.Duration

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	members map[string]map[string]*session // room code → session id → session
}

func New(c Config) *Relay {
	return &Relay{
		registry:  c.Registry,
		bus:       c.EventBus,
		questions: c.Questions,
		roundDur:  c.RoundDuration,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Reconnection is the client's concern; origins are not
			// restricted, matching the open CORS posture of the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		members: make(map[string]map[string]*session),
	}
}

// HandleWS upgrades the request and serves the connection until it
// drops. Each connection gets a fresh session identity; the room never
// distinguishes a reconnect from a brand-new join.
func (r *Relay) HandleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Error("relay: upgrade failed", "error", err)
		return
	}
	r.Serve(conn)
}

// Serve runs the read loop for one connection. Exported separately
// from HandleWS so tests can drive fake connections.
func (r *Relay) Serve(conn Conn) {
	s := &session{id: uuid.NewString(), conn: conn}
	slog.Info("relay: player connected", "session", s.id)

	defer func() {
		r.disconnect(s)
		conn.Close()
		slog.Info("relay: player disconnected", "session", s.id)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("relay: bad frame", "session", s.id, "error", err)
			continue
		}
		r.route(s, env)
	}
}

func (r *Relay) route(s *session, env Envelope) {
	switch env.Type {
	case intentCreateRoom:
		var in createRoomIntent
		if json.Unmarshal(env.Data, &in) == nil {
			r.createRoom(s, in)
		}
	case intentJoinRoom:
		var in joinRoomIntent
		if json.Unmarshal(env.Data, &in) == nil {
			r.joinRoom(s, in)
		}
	case intentSwitchTeam:
		if room, ok := r.sessionRoom(s); ok {
			r.switchTeam(s, room)
		}
	case intentStartGame:
		if room, ok := r.sessionRoom(s); ok {
			r.startGame(room)
		}
	case intentSubmitAnswer:
		var in submitAnswerIntent
		if json.Unmarshal(env.Data, &in) == nil {
			if room, ok := r.sessionRoom(s); ok {
				r.submitAnswer(s, room, in.AnswerIndex)
			}
		}
	case intentUsePowerUp:
		var in usePowerUpIntent
		if json.Unmarshal(env.Data, &in) == nil {
			if room, ok := r.sessionRoom(s); ok {
				r.usePowerUp(s, room, in.PowerUpType)
			}
		}
	case intentNextQuestion:
		if room, ok := r.sessionRoom(s); ok {
			r.nextQuestion(room)
		}
	case intentRematch:
		if room, ok := r.sessionRoom(s); ok {
			r.rematch(room)
		}
	default:
		slog.Warn("relay: unknown intent", "session", s.id, "type", env.Type)
	}
}

// sessionRoom resolves the room the session is bound to. Intents
// arriving before a create/join are dropped.
func (r *Relay) sessionRoom(s *session) (*game.Room, bool) {
	if s.roomCode == "" {
		return nil, false
	}
	return r.registry.Get(s.roomCode)
}

func (r *Relay) bind(s *session, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.roomCode = code
	if r.members[code] == nil {
		r.members[code] = make(map[string]*session)
	}
	r.members[code][s.id] = s
}

func (r *Relay) unbind(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if peers, ok := r.members[s.roomCode]; ok {
		delete(peers, s.id)
		if len(peers) == 0 {
			delete(r.members, s.roomCode)
		}
	}
	s.roomCode = ""
}

// broadcast fans one message out to every member of the room.
func (r *Relay) broadcast(code, typ string, data any) {
	r.mu.RLock()
	peers := make([]*session, 0, len(r.members[code]))
	for _, s := range r.members[code] {
		peers = append(peers, s)
	}
	r.mu.RUnlock()

	g := errgroup.Group{}
	g.SetLimit(broadcastConcurrency)
	for _, s := range peers {
		s := s
		g.Go(func() error {
			s.send(typ, data)
			return nil
		})
	}
	g.Wait()
}

func (r *Relay) createRoom(s *session, in createRoomIntent) {
	room, err := r.registry.Create(func(code string) (*game.Room, error) {
		return game.NewRoom(game.RoomConfig{
			Code:          code,
			Mode:          in.Mode,
			Questions:     r.questions,
			RoundDuration: r.roundDur,
		})
	})
	if err != nil {
		slog.Warn("relay: create room failed", "session", s.id, "mode", in.Mode, "error", err)
		s.send(msgJoinError, joinErrorPayload{Error: "Could not create room"})
		return
	}

	player := room.AddPlayer(s.id, in.PlayerName, domain.TeamRed)
	r.bind(s, room.Code())

	slog.Info("relay: room created", "room", room.Code(), "mode", room.Mode(), "player", player.Name)
	s.send(msgRoomCreated, roomCreatedPayload{RoomCode: room.Code(), Player: player, Team: domain.TeamRed})

	r.bus.Publish(context.Background(), domain.EventRoomCreated{Code: room.Code(), Mode: room.Mode()})
}

func (r *Relay) joinRoom(s *session, in joinRoomIntent) {
	room, ok := r.registry.Get(in.RoomCode)
	if !ok {
		s.send(msgJoinError, joinErrorPayload{Error: errRoomNotFound.Message})
		return
	}
	if room.Status() == domain.StatusPlaying {
		s.send(msgJoinError, joinErrorPayload{Error: errGameInProgress.Message})
		return
	}

	team := room.SmallestTeam()
	player := room.AddPlayer(s.id, in.PlayerName, team)
	r.bind(s, room.Code())

	slog.Info("relay: player joined", "room", room.Code(), "player", player.Name, "team", team)
	s.send(msgRoomJoined, roomCreatedPayload{RoomCode: room.Code(), Player: player, Team: team})

	r.broadcast(room.Code(), msgPlayerJoined, playerJoinedPayload{
		Player:   player,
		TeamRed:  room.TeamPlayers(domain.TeamRed),
		TeamBlue: room.TeamPlayers(domain.TeamBlue),
	})
}

func (r *Relay) switchTeam(s *session, room *game.Room) {
	team, ok := room.SwitchTeam(s.id)
	if !ok {
		return
	}

	r.broadcast(room.Code(), msgTeamsUpdated, teamsUpdatedPayload{
		TeamRed:        room.TeamPlayers(domain.TeamRed),
		TeamBlue:       room.TeamPlayers(domain.TeamBlue),
		SwitchedPlayer: switchedPlayer{ID: s.id, Team: team},
	})
}

func (r *Relay) startGame(room *game.Room) {
	room.Start()

	r.broadcast(room.Code(), msgGameStarted, gameStartedPayload{
		Mode:     room.Mode(),
		State:    room.Snapshot(),
		Question: room.CurrentQuestion(),
	})
	r.startRound(room)
}

func (r *Relay) startRound(room *game.Room) {
	room.StartRoundTimer(
		func(remaining int) {
			r.broadcast(room.Code(), msgTimerTick, timerTickPayload{TimeLeft: remaining})
		},
		func() {
			r.roundOver(room)
		},
	)
}

// roundOver runs on round-timer expiry: advance the quiz and either
// open the next round or end the match.
func (r *Relay) roundOver(room *game.Room) {
	if !room.RoundAnswered() {
		r.broadcast(room.Code(), msgBothWrong, statePayload{State: room.Snapshot()})
	}

	room.NextQuestion()
	q := room.CurrentQuestion()
	if q == nil || room.CheckWin() {
		r.gameOver(room)
		return
	}

	r.broadcast(room.Code(), msgNewQuestion, newQuestionPayload{Question: q, State: room.Snapshot()})
	r.startRound(room)
}

// gameOver declares the result. The answer path and the round-timer
// path can both detect the same win, and answers keep adjudicating on
// a finished room, so only the call that performs the finished
// transition broadcasts and publishes.
func (r *Relay) gameOver(room *game.Room) {
	room.StopTimer()
	if !room.Finish() {
		return
	}
	winner := room.Winner()

	slog.Info("relay: game over", "room", room.Code(), "winner", winner)
	r.broadcast(room.Code(), msgGameOver, gameOverPayload{Winner: winner, State: room.Snapshot()})

	r.bus.Publish(context.Background(), domain.EventGameOver{
		Code:    room.Code(),
		Mode:    room.Mode(),
		Winner:  winner,
		Players: room.Players(),
	})
}

func (r *Relay) submitAnswer(s *session, room *game.Room, answerIndex int) {
	res := room.SubmitAnswer(s.id, answerIndex)
	if res.NoEffect() {
		return
	}

	s.send(msgAnswerResult, answerResultPayload{
		Correct:       res.Correct,
		CorrectAnswer: res.CorrectAnswer,
		PointsEarned:  res.PointsEarned,
	})

	r.broadcast(room.Code(), msgStateUpdate, stateUpdatePayload{
		State:      room.Snapshot(),
		LastAction: res.Action,
		Team:       res.Team,
		PlayerName: res.PlayerName,
	})

	if room.CheckWin() {
		r.gameOver(room)
	}
}

func (r *Relay) usePowerUp(s *session, room *game.Room, kind domain.PowerUp) {
	res := room.UsePowerUp(s.id, kind)
	if !res.Success {
		s.send(msgPowerUpFailed, powerUpFailedPayload{Reason: res.Reason})
		return
	}

	r.broadcast(room.Code(), msgPowerUpActivated, powerUpActivatedPayload{
		Type:   kind,
		Team:   res.Team,
		State:  room.Snapshot(),
		Effect: res.Effect,
	})
}

func (r *Relay) nextQuestion(room *game.Room) {
	room.NextQuestion()
	q := room.CurrentQuestion()
	if q == nil {
		return
	}

	r.broadcast(room.Code(), msgNewQuestion, newQuestionPayload{Question: q, State: room.Snapshot()})
}

func (r *Relay) rematch(room *game.Room) {
	room.Reset()

	r.broadcast(room.Code(), msgRematchStarted, rematchStartedPayload{
		State:    room.Snapshot(),
		Question: room.CurrentQuestion(),
	})
}

// disconnect removes the player from their room, notifies the
// remaining members and tears the room down when it empties.
func (r *Relay) disconnect(s *session) {
	code := s.roomCode
	if code == "" {
		return
	}

	room, ok := r.registry.Get(code)
	r.unbind(s)
	if !ok {
		return
	}

	var name string
	for _, p := range room.Players() {
		if p.ID == s.id {
			name = p.Name
			break
		}
	}

	midMatch := room.Status() == domain.StatusPlaying
	room.RemovePlayer(s.id)

	r.broadcast(code, msgPlayerLeft, playerLeftPayload{
		PlayerID: s.id,
		TeamRed:  room.TeamPlayers(domain.TeamRed),
		TeamBlue: room.TeamPlayers(domain.TeamBlue),
	})
	if midMatch {
		r.broadcast(code, msgOpponentLeft, opponentLeftPayload{PlayerName: name})
	}

	if room.PlayerCount() == 0 {
		room.StopTimer()
		r.registry.Remove(code)
		slog.Info("relay: room closed", "room", code)
		r.bus.Publish(context.Background(), domain.EventRoomClosed{Code: code})
	}
}
