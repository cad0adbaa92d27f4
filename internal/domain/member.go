// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxUsernameLen = 36

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

// Member represents a participant of a room.
// No transport or lifecycle logic here.
type Member struct {
	Username string `json:"username"`
}

// NewMember avoids raw literals in adapters and keeps validation in one place.
func NewMember(username string) (*Member, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &Member{Username: username}, nil
}
