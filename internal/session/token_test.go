package session

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenShape(t *testing.T) {
	token, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, token, TokenLength)
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
}

func TestNewTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "duplicate token generated")
		seen[token] = struct{}{}
	}
}

func TestExpiredPredicate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future expiry is live", now.Add(time.Hour), false},
		{"past expiry is dead", now.Add(-time.Second), true},
		{"exact boundary counts as expired", now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, s.Expired(now))
		})
	}
}
