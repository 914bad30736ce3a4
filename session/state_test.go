package session

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type blockingFetcher struct {
	started chan string
}

func (f blockingFetcher) FetchProfile(ctx context.Context, access string) (Profile, error) {
	f.started <- access
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestState(t *testing.T) (*State, blockingFetcher) {
	t.Helper()
	fetcher := blockingFetcher{started: make(chan string, 4)}
	return newState(fetcher, time.Minute, zerolog.Nop()), fetcher
}

func TestState_SetTokensBumpsGenerationAndClearsProfile(t *testing.T) {
	s, fetcher := newTestState(t)

	first := s.setTokens(&token.Pair{Access: "a1", Refresh: "r1"})
	require.Equal(t, "a1", <-fetcher.started)
	require.Equal(t, uint64(1), first.Generation)
	require.True(t, s.setProfile(first.Generation, Profile{"email": "a@example.com"}))
	require.Equal(t, "a@example.com", s.Snapshot().Profile["email"])

	second := s.setTokens(&token.Pair{Access: "a2", Refresh: "r2"})
	require.Equal(t, "a2", <-fetcher.started)
	require.Equal(t, uint64(2), second.Generation)
	require.Nil(t, s.Snapshot().Profile)

	// the first fetch was cancelled and reports it was superseded
	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, first.Wait(waitCtx), ErrSuperseded)
	require.False(t, s.setProfile(first.Generation, Profile{"email": "stale@example.com"}))
	require.Nil(t, s.Snapshot().Profile)

	second.Cancel()
	<-second.Done()
}

func TestState_ClearingTokensStartsNoFetch(t *testing.T) {
	s, _ := newTestState(t)

	require.Nil(t, s.setTokens(nil))
	require.Nil(t, s.pending())
	require.False(t, s.setProfile(s.Snapshot().Generation, Profile{"email": "x"}))
}

func TestState_SetErrorPublishesOnlyChanges(t *testing.T) {
	s, _ := newTestState(t)
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.setError("")
	select {
	case <-updates:
		t.Fatal("unchanged error must not publish")
	default:
	}

	s.setError("boom")
	require.Equal(t, "boom", (<-updates).LastError)
}

func TestState_SlowSubscriberSeesNewest(t *testing.T) {
	s, _ := newTestState(t)
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.setError("one")
	s.setError("two")
	s.setError("three")
	require.Equal(t, "three", (<-updates).LastError)
}

func TestFetch_WaitHonoursContext(t *testing.T) {
	s, fetcher := newTestState(t)
	f := s.setTokens(&token.Pair{Access: "a"})
	<-fetcher.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)

	f.Cancel()
	<-f.Done()
}

func TestState_ProfileAppliedOutOfBandKeepsFetchTracked(t *testing.T) {
	s, fetcher := newTestState(t)

	f := s.setTokens(&token.Pair{Access: "a1"})
	<-fetcher.started
	require.True(t, s.setProfile(f.Generation, Profile{"email": "a@example.com"}))
	require.Same(t, f, s.pending())

	require.Nil(t, s.setTokens(nil))
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("fetch of the replaced generation still running")
	}
	require.Nil(t, s.pending())
}
