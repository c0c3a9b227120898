package relay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentstudio/aigateway/providers"
	"github.com/contentstudio/aigateway/relay"
)

func streamClients(streams ...*scriptedStream) []providers.StreamClient {
	out := make([]providers.StreamClient, len(streams))
	for i, s := range streams {
		out[i] = s
	}
	return out
}

type scriptedStream struct {
	name   string
	chunks []string
	// failAfter inserts a failure after that many chunks; -1 disables it.
	failAfter int
	err       error
	calls     int
}

func newScriptedStream(name string, chunks ...string) *scriptedStream {
	return &scriptedStream{name: name, chunks: chunks, failAfter: -1}
}

func (s *scriptedStream) Name() string { return s.name }

func (s *scriptedStream) Stream(_ context.Context, _ string, _ float64, onChunk func(string) error) error {
	s.calls++
	for i, chunk := range s.chunks {
		if s.failAfter >= 0 && i == s.failAfter {
			return s.err
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	if s.failAfter >= 0 && s.failAfter >= len(s.chunks) {
		return s.err
	}
	return nil
}

func collect(events *[]relay.Event) func(relay.Event) error {
	return func(ev relay.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestRunForwardsChunksThenDone(t *testing.T) {
	r := relay.New(zap.NewNop())
	var events []relay.Event

	err := r.Run(context.Background(),
		streamClients(newScriptedStream("gemini", "Hel", "lo")),
		"hi", 0.7, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, relay.Event{Chunk: "Hel"}, events[0])
	assert.Equal(t, relay.Event{Chunk: "lo"}, events[1])
	assert.True(t, events[2].Done)
}

func TestRunFallsBackBeforeFirstChunk(t *testing.T) {
	broken := newScriptedStream("gemini")
	broken.failAfter = 0
	broken.err = errors.New("gemini unavailable")
	backup := newScriptedStream("groq", "ok")

	r := relay.New(zap.NewNop())
	var events []relay.Event
	err := r.Run(context.Background(), streamClients(broken, backup), "hi", 0.7, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "ok", events[0].Chunk)
	assert.True(t, events[1].Done)
	assert.Equal(t, 1, broken.calls)
}

func TestRunMidStreamFailureEmitsErrorWithoutFallback(t *testing.T) {
	flaky := newScriptedStream("gemini", "partial")
	flaky.failAfter = 1
	flaky.err = errors.New("connection reset")
	backup := newScriptedStream("groq", "never used")

	r := relay.New(zap.NewNop())
	var events []relay.Event
	err := r.Run(context.Background(), streamClients(flaky, backup), "hi", 0.7, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "partial", events[0].Chunk)
	assert.NotEmpty(t, events[1].Error)
	assert.False(t, events[1].Done)
	assert.Zero(t, backup.calls)
}

func TestRunAllProvidersFail(t *testing.T) {
	first := newScriptedStream("gemini")
	first.failAfter = 0
	first.err = errors.New("down")
	second := newScriptedStream("groq")
	second.failAfter = 0
	second.err = errors.New("also down")

	r := relay.New(zap.NewNop())
	var events []relay.Event
	err := r.Run(context.Background(), streamClients(first, second), "hi", 0.7, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Error)
}

func TestRunNoProvidersConfigured(t *testing.T) {
	r := relay.New(zap.NewNop())
	var events []relay.Event
	err := r.Run(context.Background(), nil, "hi", 0.7, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Error)
}

func TestRunStopsWhenConsumerGone(t *testing.T) {
	stream := newScriptedStream("gemini", "a", "b", "c")
	r := relay.New(zap.NewNop())

	var seen int
	err := r.Run(context.Background(), streamClients(stream), "hi", 0.7, func(relay.Event) error {
		seen++
		if seen >= 2 {
			return errors.New("write: broken pipe")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}
