package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "kenko", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNoopInstrumentsAreUsable(t *testing.T) {
	ctx := context.Background()
	counter, err := Meter("kenko/test").Int64Counter("kenko.test.count")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	_, span := Tracer("kenko/test").Start(ctx, "test.span")
	span.End()
	assert.False(t, span.SpanContext().IsSampled())
}
