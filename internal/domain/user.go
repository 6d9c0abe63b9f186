// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const MaxUsernameLen = 80

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUserIDInvalid   = errors.New("user id must be positive")
)

// UserID is the server-assigned user identifier. Zero means unknown.
type UserID int64

type User struct {
	ID        UserID     `json:"id"`
	Username  string     `json:"username"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	IsOnline  bool       `json:"is_online"`
	LastSeen  *Timestamp `json:"last_seen,omitempty"`
}

// NewLocalUser validates the identity the client runs as.
func NewLocalUser(id UserID, username string) (*User, error) {
	if id <= 0 {
		return nil, ErrUserIDInvalid
	}
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{ID: id, Username: username}, nil
}

// Presence is a user_status update.
type Presence struct {
	UserID   UserID     `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *Timestamp `json:"last_seen,omitempty"`
}

// Timestamp accepts both RFC 3339 and the naive ISO-8601 form the server emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("timestamp: expected string")
	}
	s = s[1 : len(s)-1]
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
