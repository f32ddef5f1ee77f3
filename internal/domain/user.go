// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
)

const MaxUserIDLen = 64

type UserID string

// NewUserID validates a resolved identity before it is used to derive a room.
func NewUserID(raw string) (UserID, error) {
	id := strings.TrimSpace(raw)
	if len(id) == 0 {
		return "", ErrIdentityMissing
	}
	if len(id) > MaxUserIDLen {
		return "", ErrIdentityTooLong
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return "", ErrIdentityInvalid
	}
	return UserID(id), nil
}

func (u UserID) String() string { return string(u) }
