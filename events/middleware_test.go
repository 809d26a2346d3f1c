package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainEmitter(t *testing.T) {
	t.Run("interceptors run in order around the sink", func(t *testing.T) {
		var order []string
		tag := func(name string) EmitInterceptor {
			return NewEmitInterceptorFunc(name, func(ctx context.Context, namespace, event string, args []any, next Emitter) error {
				order = append(order, name+":before")
				err := next.Emit(ctx, namespace, event, args)
				order = append(order, name+":after")
				return err
			})
		}
		sink := EmitterFunc(func(_ context.Context, _, _ string, _ []any) error {
			order = append(order, "sink")
			return nil
		})

		err := ChainEmitter(sink, tag("outer"), tag("inner")).Emit(context.Background(), "/", "tick", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"outer:before", "inner:before", "sink", "inner:after", "outer:after"}, order)
	})

	t.Run("an interceptor can stop the emission", func(t *testing.T) {
		var reached bool
		blocker := NewEmitInterceptorFunc("blocker", func(_ context.Context, _, _ string, _ []any, _ Emitter) error {
			return errors.New("blocked")
		})
		sink := EmitterFunc(func(_ context.Context, _, _ string, _ []any) error {
			reached = true
			return nil
		})

		err := ChainEmitter(sink, blocker).Emit(context.Background(), "/", "tick", nil)

		assert.Error(t, err)
		assert.False(t, reached)
	})

	t.Run("no interceptors leaves the sink untouched", func(t *testing.T) {
		var reached bool
		sink := EmitterFunc(func(_ context.Context, _, _ string, _ []any) error {
			reached = true
			return nil
		})

		require.NoError(t, ChainEmitter(sink).Emit(context.Background(), "/", "tick", nil))
		assert.True(t, reached)
	})
}

func TestValidationInterceptor(t *testing.T) {
	registry, _ := testRegistry(t)
	router, err := NewRouter(testDocument(t), registry)
	require.NoError(t, err)
	chain := ChainEmitter(DiscardEmitter, ValidationInterceptor(router))

	t.Run("conformant emission passes through", func(t *testing.T) {
		assert.NoError(t, chain.Emit(context.Background(), "/", "tick", []any{3}))
	})

	t.Run("non-conformant emission never reaches the sink", func(t *testing.T) {
		var reached bool
		sink := EmitterFunc(func(_ context.Context, _, _ string, _ []any) error {
			reached = true
			return nil
		})

		err := ChainEmitter(sink, ValidationInterceptor(router)).Emit(context.Background(), "/", "tick", []any{"nope"})

		var payloadErr *PayloadValidationError
		require.ErrorAs(t, err, &payloadErr)
		assert.False(t, reached)
	})
}
