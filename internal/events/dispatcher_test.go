package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingMirror struct{ seen []EventType }

func (m *recordingMirror) Mirror(_ context.Context, e Event) { m.seen = append(m.seen, e.Type) }

func TestPublishJoinsHandlerErrors(t *testing.T) {
	mirror := &recordingMirror{}
	d := NewInMemoryDispatcher(mirror)

	var calls int
	boom := errors.New("smtp down")
	d.Subscribe(EventAuditCreated, func(context.Context, Event) error { calls++; return boom })
	d.Subscribe(EventAuditCreated, func(context.Context, Event) error { calls++; return nil })

	err := d.Publish(context.Background(), Event{Type: EventAuditCreated})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
	require.Equal(t, []EventType{EventAuditCreated}, mirror.seen)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventInvitationRevoked}))
	require.Len(t, mirror.seen, 2)
}
