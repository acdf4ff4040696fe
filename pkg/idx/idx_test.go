package idx_test

import (
	"testing"
	"time"

	"github.com/halcyonlabs/authd/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidUniqueIDs(t *testing.T) {
	seen := make(map[idx.ID]struct{})
	for range 100 {
		id := idx.New()
		_, err := idx.Parse(id.String())
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup, "duplicate ULID generated")
		seen[id] = struct{}{}
	}
}

func TestNewAtEmbedsTimestamp(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestParse(t *testing.T) {
	t.Run("rejects empty", func(t *testing.T) {
		_, err := idx.Parse("")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := idx.Parse("not-a-ulid")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("round trips", func(t *testing.T) {
		id := idx.New()
		parsed, err := idx.Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})
}

func TestIsZero(t *testing.T) {
	require.True(t, idx.Zero.IsZero())
	require.False(t, idx.New().IsZero())
}
