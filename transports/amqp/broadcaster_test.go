package amqp

import (
	"context"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specwire/specwire-go/events"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("well-formed envelope decodes", func(t *testing.T) {
		body, err := json.Marshal(&Envelope{
			ID:        "m1",
			Origin:    "peer",
			Namespace: "/",
			Event:     "status",
			Args:      []any{map[string]any{"code": float64(2)}},
		})
		require.NoError(t, err)

		envelope, err := decodeEnvelope(body)

		require.NoError(t, err)
		assert.Equal(t, "/", envelope.Namespace)
		assert.Equal(t, "status", envelope.Event)
		require.Len(t, envelope.Args, 1)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		_, err := decodeEnvelope([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("missing routing identity is rejected", func(t *testing.T) {
		body, err := json.Marshal(&Envelope{ID: "m1"})
		require.NoError(t, err)

		_, err = decodeEnvelope(body)
		assert.Error(t, err)
	})
}

func TestReplay(t *testing.T) {
	newBroadcaster := func(origin string) *Broadcaster {
		return &Broadcaster{origin: origin, logger: slog.Default()}
	}
	encode := func(t *testing.T, envelope *Envelope) []byte {
		t.Helper()
		body, err := json.Marshal(envelope)
		require.NoError(t, err)
		return body
	}

	t.Run("peer emissions reach the local emitter", func(t *testing.T) {
		b := newBroadcaster("self")
		var delivered bool
		local := events.EmitterFunc(func(_ context.Context, namespace, event string, args []any) error {
			delivered = true
			assert.Equal(t, "/", namespace)
			assert.Equal(t, "status", event)
			return nil
		})

		b.replay(context.Background(), local, encode(t, &Envelope{
			Origin:    "peer",
			Namespace: "/",
			Event:     "status",
		}))

		assert.True(t, delivered)
	})

	t.Run("own emissions are skipped", func(t *testing.T) {
		b := newBroadcaster("self")
		local := events.EmitterFunc(func(_ context.Context, _, _ string, _ []any) error {
			t.Fatal("own emission must not be replayed")
			return nil
		})

		b.replay(context.Background(), local, encode(t, &Envelope{
			Origin:    "self",
			Namespace: "/",
			Event:     "status",
		}))
	})

	t.Run("malformed bodies are discarded", func(t *testing.T) {
		b := newBroadcaster("self")
		local := events.EmitterFunc(func(_ context.Context, _, _ string, _ []any) error {
			t.Fatal("malformed broadcast must not be replayed")
			return nil
		})

		b.replay(context.Background(), local, []byte("garbage"))
	})
}
