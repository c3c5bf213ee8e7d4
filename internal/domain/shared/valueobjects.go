// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"strconv"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// TelegramID represents a unique Telegram user identifier.
type TelegramID int64

// Int64 returns the underlying int64 value.
func (t TelegramID) Int64() int64 {
	return int64(t)
}

// String returns the string representation.
func (t TelegramID) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// UserID returns the store key for this Telegram user.
func (t TelegramID) UserID() UserID {
	return UserID(t.String())
}

// NewTelegramID creates a new TelegramID with validation.
func NewTelegramID(id int64) (TelegramID, error) {
	if id <= 0 {
		return 0, NewDomainError("shared", "NewTelegramID", ErrInvalidID, "invalid Telegram ID")
	}
	return TelegramID(id), nil
}

// UserID is the key of a user record: the Telegram user id in decimal.
type UserID string

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// ChatID returns the private chat id for the user. Telegram private chats
// share the user's numeric id.
func (u UserID) ChatID() (int64, error) {
	id, err := strconv.ParseInt(string(u), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewDomainError("shared", "ChatID", ErrInvalidID, "user id is not a Telegram id")
	}
	return id, nil
}

// ShortCode returns the last five characters of the id, used as the
// personal code shown to the user.
func (u UserID) ShortCode() string {
	s := strings.TrimSpace(string(u))
	if len(s) <= 5 {
		return s
	}
	return s[len(s)-5:]
}

// NewUserID creates a UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "empty user id")
	}
	return uid, nil
}
