package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelegramID(t *testing.T) {
	tid, err := NewTelegramID(777000111)
	require.NoError(t, err)
	assert.Equal(t, int64(777000111), tid.Int64())
	assert.Equal(t, UserID("777000111"), tid.UserID())

	_, err = NewTelegramID(0)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = NewTelegramID(-5)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestUserID_ChatID(t *testing.T) {
	id, err := UserID("42").ChatID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []UserID{"", "abc", "-3"} {
		_, err := bad.ChatID()
		assert.ErrorIs(t, err, ErrInvalidID, "user id %q", bad)
	}
}

func TestUserID_ShortCode(t *testing.T) {
	assert.Equal(t, "00111", UserID("777000111").ShortCode())
	assert.Equal(t, "42", UserID(" 42 ").ShortCode())
}

func TestNewUserID(t *testing.T) {
	uid, err := NewUserID("  42 ")
	require.NoError(t, err)
	assert.Equal(t, "42", uid.String())

	_, err = NewUserID("   ")
	assert.ErrorIs(t, err, ErrInvalidID)
}
