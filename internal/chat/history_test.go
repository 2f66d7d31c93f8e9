package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryHistoryExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := NewMemoryHistory(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, h.Save(ctx, "s1", Session{Iso: "9001", Turns: []Turn{{Role: RoleUser, Content: "hi"}}}))

	s, found, err := h.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "9001", s.Iso)

	now = now.Add(time.Hour)
	_, found, err = h.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSessionTrim(t *testing.T) {
	s := Session{Turns: []Turn{{Content: "1"}, {Content: "2"}, {Content: "3"}}}
	s.Trim(2)
	require.Equal(t, []Turn{{Content: "2"}, {Content: "3"}}, s.Turns)
}

func TestSessionIDsAreUnique(t *testing.T) {
	ids, err := NewSessionIDs(1)
	require.NoError(t, err)
	require.NotEqual(t, ids.New(), ids.New())

	_, err = NewSessionIDs(5000)
	require.Error(t, err)
}

func TestSessionIDsAreNotSequential(t *testing.T) {
	ids, err := NewSessionIDs(1)
	require.NoError(t, err)
	a, b := ids.New(), ids.New()

	prefixA, suffixA, ok := strings.Cut(a, "-")
	require.True(t, ok)
	prefixB, suffixB, ok := strings.Cut(b, "-")
	require.True(t, ok)
	require.NotEmpty(t, prefixA)
	require.NotEmpty(t, prefixB)
	require.Len(t, suffixA, 32)
	require.NotEqual(t, suffixA, suffixB)
}

func TestMemoryHistoryKeepsOwner(t *testing.T) {
	h := NewMemoryHistory(time.Hour, nil)
	ctx := context.Background()
	require.NoError(t, h.Save(ctx, "s1", Session{OwnerID: "alice"}))

	s, found, err := h.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", s.OwnerID)
}
