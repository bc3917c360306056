package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

func TestPublishInvokesAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	var calls []string

	d.Subscribe(EventCardCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventCardCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.CardID)
		return nil
	})
	d.Subscribe(EventCardDeleted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventCardCreated, "card-1", Actor{}, time.Now(), nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second:card-1"}, calls)
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTransferCompleted}))
}

func TestActorFrom(t *testing.T) {
	assert.Equal(t, Actor{}, ActorFrom(nil))
	assert.Equal(t, Actor{UserID: "u-1", Role: domain.RoleAdmin}, ActorFrom(&domain.User{ID: "u-1", Role: domain.RoleAdmin}))
}

func TestNewAssignsID(t *testing.T) {
	a := New(EventCardUpdated, "c", Actor{}, time.Now(), nil)
	b := New(EventCardUpdated, "c", Actor{}, time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
