// ABOUTME: Tests for the cancellation controller's local-first stop.
// ABOUTME: Local reset must happen regardless of backend availability or failure.

package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCanceller struct {
	cancelled []string
}

func (f *fakeCanceller) CancelTurn(id string) {
	f.cancelled = append(f.cancelled, id)
}

type fakeBackend struct {
	stopped []string
	err     error
}

func (f *fakeBackend) StopGeneration(_ context.Context, conversationID string) error {
	f.stopped = append(f.stopped, conversationID)
	return f.err
}

func TestController_StopResetsLocallyAndSignalsBackend(t *testing.T) {
	sessions := &fakeCanceller{}
	backend := &fakeBackend{}
	c := NewController(sessions, backend, nil)

	require.NoError(t, c.Stop(context.Background(), "conv-1"))

	assert.Equal(t, []string{"conv-1"}, sessions.cancelled)
	assert.Equal(t, []string{"conv-1"}, backend.stopped)
}

func TestController_LocalResetSurvivesBackendFailure(t *testing.T) {
	sessions := &fakeCanceller{}
	backend := &fakeBackend{err: errors.New("connection lost")}
	c := NewController(sessions, backend, nil)

	err := c.Stop(context.Background(), "conv-1")

	assert.Error(t, err)
	assert.Equal(t, []string{"conv-1"}, sessions.cancelled,
		"session reset happens before and regardless of the backend call")
}

func TestController_NilBackendIsNoop(t *testing.T) {
	sessions := &fakeCanceller{}
	c := NewController(sessions, nil, nil)

	require.NoError(t, c.Stop(context.Background(), "conv-1"))
	assert.Equal(t, []string{"conv-1"}, sessions.cancelled)
}

func TestController_StopIsIdempotent(t *testing.T) {
	sessions := &fakeCanceller{}
	backend := &fakeBackend{}
	c := NewController(sessions, backend, nil)

	require.NoError(t, c.Stop(context.Background(), "conv-1"))
	require.NoError(t, c.Stop(context.Background(), "conv-1"))

	assert.Len(t, sessions.cancelled, 2)
	assert.Len(t, backend.stopped, 2)
}
