package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamCounter(t *testing.T) {
	ctx := WithUpstreamCounter(context.Background())

	assert.Equal(t, int64(0), GetUpstreamCounter(ctx))
	assert.Equal(t, int64(0), GetUpstreamElapsed(ctx))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncrementUpstreamCounter(ctx)
			AddUpstreamElapsed(ctx, 5)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), GetUpstreamCounter(ctx))
	assert.Equal(t, int64(50), GetUpstreamElapsed(ctx))
}

func TestUpstreamCounterWithoutInitialization(t *testing.T) {
	ctx := context.Background()

	IncrementUpstreamCounter(ctx)
	AddUpstreamElapsed(ctx, 10)

	assert.Equal(t, int64(0), GetUpstreamCounter(ctx))
	assert.Equal(t, int64(0), GetUpstreamElapsed(ctx))
}

func TestWithSeverityHookNilInputs(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithSeverityHook(ctx, nil))
	assert.Nil(t, severityHookFromContext(ctx))
}
