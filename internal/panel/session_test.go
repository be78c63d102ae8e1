package panel_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/panel"
)

// gatedLoader blocks loads for the held point until released.
type gatedLoader struct {
	held     geo.Point
	started  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	canceled bool
}

func newGatedLoader(held geo.Point) *gatedLoader {
	return &gatedLoader{
		held:    held,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (l *gatedLoader) Load(ctx context.Context, point geo.Point) panel.State {
	if point == l.held {
		close(l.started)
		<-l.release
		l.mu.Lock()
		l.canceled = ctx.Err() != nil
		l.mu.Unlock()
	}
	return panel.State{Point: point, Region: panel.RegionInside}
}

func (l *gatedLoader) wasCanceled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canceled
}

var (
	losAngeles   = geo.Point{Lat: 34.0522, Lon: -118.2437}
	sanFrancisco = geo.Point{Lat: 37.7749, Lon: -122.4194}
)

func TestSession_StaleResultIsDiscarded(t *testing.T) {
	loader := newGatedLoader(losAngeles)
	session := panel.NewSession(loader)

	staleErr := make(chan error, 1)
	go func() {
		_, err := session.Select(context.Background(), losAngeles)
		staleErr <- err
	}()

	<-loader.started

	fresh, err := session.Select(context.Background(), sanFrancisco)
	require.NoError(t, err)
	assert.Equal(t, sanFrancisco, fresh.Point)
	assert.Equal(t, uint64(2), fresh.Generation)

	// The stale load resolves after the newer one.
	close(loader.release)

	select {
	case err := <-staleErr:
		assert.ErrorIs(t, err, panel.ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("stale selection did not return")
	}

	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, sanFrancisco, current.Point)
	assert.True(t, loader.wasCanceled(), "superseded load should see a cancelled context")
}

func TestSession_SequentialSelections(t *testing.T) {
	session := panel.NewSession(newGatedLoader(geo.Point{Lat: -1, Lon: -1}))

	_, ok := session.Current()
	assert.False(t, ok)

	first, err := session.Select(context.Background(), losAngeles)
	require.NoError(t, err)
	second, err := session.Select(context.Background(), sanFrancisco)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, uint64(2), second.Generation)
	assert.Equal(t, uint64(2), session.Generation())

	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, sanFrancisco, current.Point)
}

func TestSessions_GetReturnsSameSession(t *testing.T) {
	sessions := panel.NewSessions(newGatedLoader(geo.Point{}), time.Minute)

	a := sessions.Get("client-a")
	assert.Same(t, a, sessions.Get("client-a"))
	assert.NotSame(t, a, sessions.Get("client-b"))
	assert.Equal(t, 2, sessions.Len())
}
