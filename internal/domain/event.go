package domain

const (
	EventNameRoomCreated = "room.created"
	EventNameRoomClosed  = "room.closed"
	EventNameGameOver    = "game.over"
)

type EventRoomCreated struct {
	Code string
	Mode Mode
}

func (EventRoomCreated) Name() string { return EventNameRoomCreated }

type EventRoomClosed struct {
	Code string
}

func (EventRoomClosed) Name() string { return EventNameRoomClosed }

// EventGameOver carries the final roster so subscribers can record
// cross-match standings without reaching back into the room.
type EventGameOver struct {
	Code    string
	Mode    Mode
	Winner  Team
	Players []Player
}

func (EventGameOver) Name() string { return EventNameGameOver }
