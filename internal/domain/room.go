package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RoomID string

func (r RoomID) String() string { return string(r) }

// roomTimeLayout gives minute granularity: two attempts by the same user in
// the same minute share a room, attempts in different minutes never do.
const roomTimeLayout = "20060102-1504"

// DeriveRoomID is a pure function of identity and the captured local time.
func DeriveRoomID(user UserID, at time.Time) RoomID {
	return RoomID(fmt.Sprintf("room-%s-%s", user, at.Format(roomTimeLayout)))
}

// SessionIdentity is created once per call attempt and never mutated.
type SessionIdentity struct {
	UserID    UserID    `json:"user_id"`
	RoomID    RoomID    `json:"room_id"`
	AttemptID string    `json:"attempt_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSessionIdentity(user UserID, now time.Time) SessionIdentity {
	return SessionIdentity{
		UserID:    user,
		RoomID:    DeriveRoomID(user, now),
		AttemptID: uuid.NewString(),
		CreatedAt: now,
	}
}

// JoinCredential permits one identity to join exactly one room. Held in memory only.
type JoinCredential struct {
	Token       string `json:"-"`
	EndpointURL string `json:"url"`
	IssuedFor   RoomID `json:"room"`
}
