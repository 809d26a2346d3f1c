package specwire

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specwire/specwire-go/events"
	"github.com/specwire/specwire-go/handlers"
)

const fixture = `
asyncapi: "2.3.0"
info:
  title: Door service
  version: "1.0.0"
channels:
  /doors:
    publish:
      message:
        name: unlock
        payload:
          type: object
          properties:
            door:
              type: string
          required: [door]
        x-handler: doors.unlock
        x-ack:
          args:
            type: boolean
    subscribe:
      message:
        name: state
        payload:
          type: object
          properties:
            door:
              type: string
              format: first_name
            open:
              type: boolean
          required: [door, open]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doors.yml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	return path
}

func TestFromFile(t *testing.T) {
	t.Run("mock mode binds every handler reference", func(t *testing.T) {
		server, err := FromFile(writeFixture(t), WithMockMode(true))

		require.NoError(t, err)
		assert.NotNil(t, server.Router())
		assert.NotNil(t, server.Document())
	})

	t.Run("missing handlers fail construction outside mock mode", func(t *testing.T) {
		_, err := FromFile(writeFixture(t))

		var resolution *handlers.ResolutionError
		require.ErrorAs(t, err, &resolution)
	})

	t.Run("sample size zero disables faker formats", func(t *testing.T) {
		server, err := FromFile(writeFixture(t), WithMockMode(true), WithFormatSampleSize(0))
		require.NoError(t, err)

		_, ok := server.Generator().Formats().Lookup("first_name")
		assert.False(t, ok)
	})

	t.Run("mock mode installs faker formats", func(t *testing.T) {
		server, err := FromFile(writeFixture(t), WithMockMode(true))
		require.NoError(t, err)

		_, ok := server.Generator().Formats().Lookup("first_name")
		assert.True(t, ok)
	})

	t.Run("host-registered handlers win over fakes", func(t *testing.T) {
		registry := handlers.NewRegistry()
		var invoked bool
		require.NoError(t, registry.Register("doors.unlock", func(_ context.Context, _ []any) (any, error) {
			invoked = true
			return true, nil
		}))

		server, err := FromFile(writeFixture(t), WithMockMode(true), WithRegistry(registry))
		require.NoError(t, err)

		ack, err := server.Router().HandleEvent(context.Background(), "/doors", "unlock", []any{
			map[string]any{"door": "north"},
		})

		require.NoError(t, err)
		assert.Equal(t, true, ack)
		assert.True(t, invoked)
	})
}

func TestServerRun(t *testing.T) {
	t.Run("mock mode emits conformant payloads on schedule", func(t *testing.T) {
		var mu sync.Mutex
		var emitted [][]any
		emitter := events.EmitterFunc(func(_ context.Context, namespace, event string, args []any) error {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "/doors", namespace)
			assert.Equal(t, "state", event)
			emitted = append(emitted, args)
			return nil
		})

		server, err := FromFile(writeFixture(t),
			WithMockMode(true),
			WithEmitter(emitter),
			WithEmissionInterval(30*time.Millisecond),
			WithFakerSeed(42),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 160*time.Millisecond)
		defer cancel()
		err = server.Run(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		mu.Lock()
		defer mu.Unlock()
		require.NotEmpty(t, emitted)
		for _, args := range emitted {
			assert.NoError(t, server.Router().ValidateEmit("/doors", "state", args))
		}
	})

	t.Run("rejects a non-positive emission interval", func(t *testing.T) {
		server, err := FromFile(writeFixture(t),
			WithMockMode(true),
			WithEmissionInterval(-time.Second),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		assert.Error(t, server.Run(ctx))
	})

	t.Run("fake acknowledgements conform to the ack schema", func(t *testing.T) {
		server, err := FromFile(writeFixture(t), WithMockMode(true), WithFakerSeed(7))
		require.NoError(t, err)

		ack, err := server.Router().HandleEvent(context.Background(), "/doors", "unlock", []any{
			map[string]any{"door": "east"},
		})

		require.NoError(t, err)
		assert.IsType(t, true, ack)
	})
}
