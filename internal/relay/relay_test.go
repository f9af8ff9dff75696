package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/event"
	"github.com/victornm/battlebrains/internal/registry"
)

// fakeConn drives the relay without a network. Outbound messages are
// published on a buffered channel for the test to consume.
type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	outbound chan Outbound
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 16),
		closed:   make(chan struct{}),
		outbound: make(chan Outbound, 64),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case raw := <-c.inbound:
		return 1, raw, nil
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.outbound <- v.(Outbound)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// intent frames an intent envelope the way a client would.
func (c *fakeConn) intent(t *testing.T, typ string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{Type: typ, Data: data})
	require.NoError(t, err)
	c.inbound <- raw
}

// waitFor consumes outbound messages until one of the wanted type
// arrives, discarding everything else (timer ticks in particular).
func (c *fakeConn) waitFor(t *testing.T, typ string) Outbound {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.outbound:
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %q message arrived", typ)
			return Outbound{}
		}
	}
}

// assertSilent asserts no message of the given type is pending.
func (c *fakeConn) assertSilent(t *testing.T, typ string) {
	t.Helper()

	timeout := time.After(200 * time.Millisecond)
	for {
		select {
		case msg := <-c.outbound:
			if msg.Type == typ {
				t.Fatalf("unexpected %q message", typ)
			}
		case <-timeout:
			return
		}
	}
}

func relayQuestions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, domain.Question{
			QuestionID:   fmt.Sprintf("q%d", i+1),
			Text:         "pick the first option",
			Options:      []string{"right", "wrong", "wrong", "wrong"},
			CorrectIndex: 0,
		})
	}
	return qs
}

type fixture struct {
	relay    *Relay
	registry *registry.Registry
	bus      *event.Bus
	events   chan event.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		registry: registry.New(),
		bus:      event.NewBus(),
		events:   make(chan event.Event, 16),
	}
	t.Cleanup(f.bus.Stop)

	capture := func(_ context.Context, e event.Event) error {
		f.events <- e
		return nil
	}
	f.bus.Subscribe(domain.EventNameRoomCreated, capture)
	f.bus.Subscribe(domain.EventNameRoomClosed, capture)
	f.bus.Subscribe(domain.EventNameGameOver, capture)

	f.relay = New(Config{
		Registry:      f.registry,
		EventBus:      f.bus,
		Questions:     relayQuestions(20),
		RoundDuration: time.Hour, // keep real round expiry out of tests
	})
	return f
}

func (f *fixture) connect(t *testing.T) *fakeConn {
	t.Helper()

	c := newFakeConn()
	go f.relay.Serve(c)
	t.Cleanup(func() { c.Close() })
	return c
}

// createRoom drives a full create-room handshake and returns the code.
func (f *fixture) createRoom(t *testing.T, c *fakeConn, mode domain.Mode, name string) string {
	t.Helper()

	c.intent(t, intentCreateRoom, createRoomIntent{PlayerName: name, Mode: mode})
	msg := c.waitFor(t, msgRoomCreated)
	payload := msg.Data.(roomCreatedPayload)
	require.Len(t, payload.RoomCode, 6)
	return payload.RoomCode
}

func (f *fixture) waitEvent(t *testing.T, name string) event.Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-f.events:
			if e.Name() == name {
				return e
			}
		case <-deadline:
			t.Fatalf("no %q event published", name)
			return nil
		}
	}
}

// assertNoEvent asserts no event with the given name is published
// within a short window.
func (f *fixture) assertNoEvent(t *testing.T, name string) {
	t.Helper()

	timeout := time.After(200 * time.Millisecond)
	for {
		select {
		case e := <-f.events:
			if e.Name() == name {
				t.Fatalf("unexpected %q event", name)
			}
		case <-timeout:
			return
		}
	}
}

func TestRelay_CreateRoom(t *testing.T) {
	f := newFixture(t)
	c := f.connect(t)

	c.intent(t, intentCreateRoom, createRoomIntent{PlayerName: "alice", Mode: domain.ModeTugOfWar})

	msg := c.waitFor(t, msgRoomCreated)
	payload := msg.Data.(roomCreatedPayload)
	assert.Len(t, payload.RoomCode, 6)
	assert.Equal(t, "alice", payload.Player.Name)
	assert.Equal(t, domain.TeamRed, payload.Team, "the creator always starts red")

	room, ok := f.registry.Get(payload.RoomCode)
	require.True(t, ok)
	assert.Equal(t, 1, room.PlayerCount())

	e := f.waitEvent(t, domain.EventNameRoomCreated)
	assert.Equal(t, payload.RoomCode, e.(domain.EventRoomCreated).Code)
}

func TestRelay_CreateRoom_UnknownMode(t *testing.T) {
	f := newFixture(t)
	c := f.connect(t)

	c.intent(t, intentCreateRoom, createRoomIntent{PlayerName: "alice", Mode: domain.Mode("chess")})

	msg := c.waitFor(t, msgJoinError)
	assert.Equal(t, "Could not create room", msg.Data.(joinErrorPayload).Error)
	assert.Equal(t, 0, f.registry.Len())
}

func TestRelay_JoinRoom(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")

	t.Run("unknown code", func(t *testing.T) {
		c := f.connect(t)
		c.intent(t, intentJoinRoom, joinRoomIntent{RoomCode: "NOPE42", PlayerName: "bob"})
		msg := c.waitFor(t, msgJoinError)
		assert.Equal(t, "Room not found!", msg.Data.(joinErrorPayload).Error)
	})

	t.Run("balanced join", func(t *testing.T) {
		c := f.connect(t)
		c.intent(t, intentJoinRoom, joinRoomIntent{RoomCode: code, PlayerName: "bob"})

		msg := c.waitFor(t, msgRoomJoined)
		payload := msg.Data.(roomCreatedPayload)
		assert.Equal(t, domain.TeamBlue, payload.Team, "auto-assignment balances teams")

		// Both members see the roster broadcast.
		joined := creator.waitFor(t, msgPlayerJoined).Data.(playerJoinedPayload)
		assert.Equal(t, "bob", joined.Player.Name)
		require.Len(t, joined.TeamRed, 1)
		require.Len(t, joined.TeamBlue, 1)
		c.waitFor(t, msgPlayerJoined)
	})

	t.Run("in progress", func(t *testing.T) {
		creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
		creator.waitFor(t, msgGameStarted)

		c := f.connect(t)
		c.intent(t, intentJoinRoom, joinRoomIntent{RoomCode: code, PlayerName: "carol"})
		msg := c.waitFor(t, msgJoinError)
		assert.Equal(t, "Game already in progress!", msg.Data.(joinErrorPayload).Error)
	})
}

func TestRelay_SwitchTeam(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")

	creator.intent(t, intentSwitchTeam, roomIntent{RoomCode: code})

	msg := creator.waitFor(t, msgTeamsUpdated)
	payload := msg.Data.(teamsUpdatedPayload)
	assert.Equal(t, domain.TeamBlue, payload.SwitchedPlayer.Team)
	assert.Empty(t, payload.TeamRed)
	require.Len(t, payload.TeamBlue, 1)
}

func TestRelay_StartGame(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeRocketRush, "alice")

	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})

	msg := creator.waitFor(t, msgGameStarted)
	payload := msg.Data.(gameStartedPayload)
	assert.Equal(t, domain.ModeRocketRush, payload.Mode)
	require.NotNil(t, payload.Question)
	assert.Equal(t, "q1", payload.Question.QuestionID)
	assert.Equal(t, 0, payload.State["redAltitude"])
}

func TestRelay_SubmitAnswer(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")
	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
	creator.waitFor(t, msgGameStarted)

	t.Run("correct", func(t *testing.T) {
		creator.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: code, AnswerIndex: 0})

		result := creator.waitFor(t, msgAnswerResult).Data.(answerResultPayload)
		assert.True(t, result.Correct)
		assert.Equal(t, "right", result.CorrectAnswer)
		assert.Equal(t, 10, result.PointsEarned)

		update := creator.waitFor(t, msgStateUpdate).Data.(stateUpdatePayload)
		require.NotNil(t, update.LastAction)
		assert.Equal(t, "pull", update.LastAction.Type)
		assert.Equal(t, "alice", update.PlayerName)
		assert.Equal(t, -8, update.State["ropePosition"])
	})

	t.Run("wrong", func(t *testing.T) {
		creator.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: code, AnswerIndex: 2})

		result := creator.waitFor(t, msgAnswerResult).Data.(answerResultPayload)
		assert.False(t, result.Correct)
		assert.Zero(t, result.PointsEarned)

		update := creator.waitFor(t, msgStateUpdate).Data.(stateUpdatePayload)
		assert.Equal(t, "wrong", update.LastAction.Type)
		assert.Equal(t, -8, update.State["ropePosition"], "wrong answers never move the rope")
	})
}

func TestRelay_PowerUps(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")
	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
	creator.waitFor(t, msgGameStarted)

	creator.intent(t, intentUsePowerUp, usePowerUpIntent{RoomCode: code, PowerUpType: domain.PowerUpDouble})
	activated := creator.waitFor(t, msgPowerUpActivated).Data.(powerUpActivatedPayload)
	assert.Equal(t, domain.PowerUpDouble, activated.Type)
	assert.Equal(t, domain.TeamRed, activated.Team)
	assert.Equal(t, -8, activated.State["ropePosition"])

	// Power-ups are single-use; the retry fails privately.
	creator.intent(t, intentUsePowerUp, usePowerUpIntent{RoomCode: code, PowerUpType: domain.PowerUpDouble})
	failed := creator.waitFor(t, msgPowerUpFailed).Data.(powerUpFailedPayload)
	assert.Equal(t, "Power-up not available", failed.Reason)
}

func TestRelay_GameOver(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeCatapultClash, "alice")
	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
	creator.waitFor(t, msgGameStarted)

	// 100 health at 12 damage per hit falls on the 9th correct answer.
	for i := 0; i < 9; i++ {
		creator.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: code, AnswerIndex: 0})
		creator.waitFor(t, msgStateUpdate)
	}

	over := creator.waitFor(t, msgGameOver).Data.(gameOverPayload)
	assert.Equal(t, domain.TeamRed, over.Winner)
	assert.Equal(t, 0, over.State["blueHealth"])

	room, ok := f.registry.Get(code)
	require.True(t, ok)
	assert.Equal(t, domain.StatusFinished, room.Status())

	e := f.waitEvent(t, domain.EventNameGameOver).(domain.EventGameOver)
	assert.Equal(t, code, e.Code)
	assert.Equal(t, domain.TeamRed, e.Winner)
	require.Len(t, e.Players, 1)
	// Four answers at 10 points, then five at 15 with the streak bonus.
	assert.Equal(t, 115, e.Players[0].Score)

	// A correct answer on the finished room still adjudicates, but the
	// result must not be declared again: one game-over broadcast and
	// one published event per match, or the leaderboard double-counts.
	creator.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: code, AnswerIndex: 0})
	creator.waitFor(t, msgStateUpdate)
	creator.assertSilent(t, msgGameOver)
	f.assertNoEvent(t, domain.EventNameGameOver)
}

func TestRelay_Rematch(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")
	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
	creator.waitFor(t, msgGameStarted)

	creator.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: code, AnswerIndex: 0})
	creator.waitFor(t, msgStateUpdate)

	creator.intent(t, intentRematch, roomIntent{RoomCode: code})

	msg := creator.waitFor(t, msgRematchStarted).Data.(rematchStartedPayload)
	assert.Equal(t, 0, msg.State["ropePosition"], "rematch resets the contest")
	require.NotNil(t, msg.Question)
	assert.Equal(t, "q1", msg.Question.QuestionID, "rematch rewinds the quiz")
}

func TestRelay_NextQuestion(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")
	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
	creator.waitFor(t, msgGameStarted)

	creator.intent(t, intentNextQuestion, roomIntent{RoomCode: code})

	msg := creator.waitFor(t, msgNewQuestion).Data.(newQuestionPayload)
	assert.Equal(t, "q2", msg.Question.QuestionID)
	assert.Equal(t, 1, msg.State["questionIndex"])
}

func TestRelay_Disconnect(t *testing.T) {
	f := newFixture(t)
	creator := f.connect(t)
	code := f.createRoom(t, creator, domain.ModeTugOfWar, "alice")

	joiner := f.connect(t)
	joiner.intent(t, intentJoinRoom, joinRoomIntent{RoomCode: code, PlayerName: "bob"})
	joiner.waitFor(t, msgRoomJoined)

	creator.intent(t, intentStartGame, roomIntent{RoomCode: code})
	creator.waitFor(t, msgGameStarted)

	joiner.Close()

	left := creator.waitFor(t, msgPlayerLeft).Data.(playerLeftPayload)
	assert.Empty(t, left.TeamBlue)
	require.Len(t, left.TeamRed, 1)

	notice := creator.waitFor(t, msgOpponentLeft).Data.(opponentLeftPayload)
	assert.Equal(t, "bob", notice.PlayerName)

	// Last player out tears the room down.
	creator.Close()
	e := f.waitEvent(t, domain.EventNameRoomClosed).(domain.EventRoomClosed)
	assert.Equal(t, code, e.Code)
	assert.Equal(t, 0, f.registry.Len())
}

func TestRelay_InertIntentsStaySilent(t *testing.T) {
	f := newFixture(t)
	c := f.connect(t)

	// Intents before any create/join resolve no room and are dropped.
	c.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: "NOPE42", AnswerIndex: 0})
	c.intent(t, intentStartGame, roomIntent{RoomCode: "NOPE42"})
	c.assertSilent(t, msgStateUpdate)

	// Submitting with no current question is an inert result: no
	// private reply, no broadcast.
	code := f.createRoom(t, c, domain.ModeTugOfWar, "alice")
	c.intent(t, intentStartGame, roomIntent{RoomCode: code})
	c.waitFor(t, msgGameStarted)
	for i := 0; i < 25; i++ {
		c.intent(t, intentNextQuestion, roomIntent{RoomCode: code})
	}
	c.intent(t, intentSubmitAnswer, submitAnswerIntent{RoomCode: code, AnswerIndex: 0})
	c.assertSilent(t, msgAnswerResult)
}
