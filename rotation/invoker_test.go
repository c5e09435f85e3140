package rotation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/logger"
	obtest "github.com/gaborage/keyrelay/observability/testing"
)

const testProvider = "gemini"

// recorder is a scripted operation that remembers every credential it saw.
type recorder struct {
	outcomes map[string]error
	calls    []string
}

func (r *recorder) op(_ context.Context, cred credential.Credential) (string, error) {
	r.calls = append(r.calls, cred.Secret())
	if err, ok := r.outcomes[cred.Secret()]; ok && err != nil {
		return "", err
	}
	return "payload-from-" + cred.Secret(), nil
}

func newPool(t *testing.T, raw string) credential.Pool {
	t.Helper()
	pool, err := credential.NewPool(testProvider, raw, ",")
	require.NoError(t, err)
	return pool.Shuffle(credential.Identity)
}

func TestInvokeScenarioA(t *testing.T) {
	rec := &recorder{outcomes: map[string]error{
		"key-one-0001": errors.New("status 429"),
		"key-two-0002": errors.New("status 403"),
	}}

	result, err := NewInvoker[string]().Invoke(context.Background(), newPool(t, "key-one-0001,key-two-0002,key-three-0003"), rec.op)

	require.NoError(t, err)
	assert.Equal(t, "payload-from-key-three-0003", result)
	assert.Equal(t, []string{"key-one-0001", "key-two-0002", "key-three-0003"}, rec.calls)
}

func TestInvokeScenarioBKeepsLastFailure(t *testing.T) {
	rec := &recorder{outcomes: map[string]error{
		"key-one-0001": errors.New("quota exceeded"),
		"key-two-0002": errors.New("invalid key"),
	}}

	_, err := NewInvoker[string]().Invoke(context.Background(), newPool(t, "key-one-0001,key-two-0002"), rec.op)

	require.Error(t, err)
	var aggErr *AggregatedError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, testProvider, aggErr.Provider)
	assert.Equal(t, 2, aggErr.Attempts)
	assert.Contains(t, err.Error(), "invalid key")
	assert.NotContains(t, err.Error(), "quota exceeded")
	assert.True(t, IsAggregatedError(err))
	assert.Len(t, rec.calls, 2)
}

func TestInvokeScenarioCEmptyPool(t *testing.T) {
	_, buildErr := credential.NewPool(testProvider, " , ", ",")
	require.Error(t, buildErr)
	assert.True(t, credential.IsConfigurationError(buildErr))

	rec := &recorder{}
	_, err := NewInvoker[string]().Invoke(context.Background(), credential.PoolOf(testProvider), rec.op)

	require.Error(t, err)
	assert.True(t, credential.IsConfigurationError(err))
	assert.False(t, IsAggregatedError(err))
	assert.Empty(t, rec.calls)
}

func TestInvokeScenarioESingleSuccess(t *testing.T) {
	rec := &recorder{}

	result, err := NewInvoker[string]().Invoke(context.Background(), newPool(t, "only-key-0001"), rec.op)

	require.NoError(t, err)
	assert.Equal(t, "payload-from-only-key-0001", result)
	assert.Equal(t, []string{"only-key-0001"}, rec.calls)
}

func TestInvokeKthSuccessMakesExactlyKAttempts(t *testing.T) {
	const size = 6
	keys := make([]credential.Credential, size)
	for i := range keys {
		keys[i] = credential.New(fmt.Sprintf("credential-%04d", i))
	}

	for k := 1; k <= size; k++ {
		t.Run(fmt.Sprintf("success_at_%d", k), func(t *testing.T) {
			outcomes := map[string]error{}
			for i := 0; i < k-1; i++ {
				outcomes[keys[i].Secret()] = fmt.Errorf("failure %d", i)
			}
			rec := &recorder{outcomes: outcomes}

			result, err := NewInvoker[string]().Invoke(context.Background(), credential.PoolOf(testProvider, keys...), rec.op)

			require.NoError(t, err)
			assert.Equal(t, "payload-from-"+keys[k-1].Secret(), result)
			assert.Len(t, rec.calls, k)

			seen := map[string]bool{}
			for _, c := range rec.calls {
				assert.False(t, seen[c], "credential %s used twice", c)
				seen[c] = true
			}
		})
	}
}

func TestInvokeAllFailMakesExactlyNAttempts(t *testing.T) {
	pool := newPool(t, "a-key-00001,b-key-00002,c-key-00003,d-key-00004")
	calls := 0
	op := func(_ context.Context, _ credential.Credential) (int, error) {
		calls++
		return 0, fmt.Errorf("failure %d", calls)
	}

	_, err := NewInvoker[int]().Invoke(context.Background(), pool, op)

	var aggErr *AggregatedError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, aggErr.Attempts)
	assert.EqualError(t, aggErr.Last, "failure 4")
}

func TestInvokeFollowsShuffledOrder(t *testing.T) {
	reverse := func(creds []credential.Credential) {
		for i, j := 0, len(creds)-1; i < j; i, j = i+1, j-1 {
			creds[i], creds[j] = creds[j], creds[i]
		}
	}
	pool, err := credential.NewPool(testProvider, "k1-aaaaaaa,k2-bbbbbbb,k3-ccccccc", ",")
	require.NoError(t, err)

	rec := &recorder{outcomes: map[string]error{
		"k3-ccccccc": errors.New("down"),
		"k2-bbbbbbb": errors.New("down"),
		"k1-aaaaaaa": errors.New("down"),
	}}
	_, err = NewInvoker[string]().Invoke(context.Background(), pool.Shuffle(reverse), rec.op)

	require.Error(t, err)
	assert.Equal(t, []string{"k3-ccccccc", "k2-bbbbbbb", "k1-aaaaaaa"}, rec.calls)
}

func TestInvokeRedactsCredentialFromFailure(t *testing.T) {
	secret := "AIzaSyVerySecretKey4321"
	pool := credential.PoolOf(testProvider, credential.New(secret))
	underlying := errors.New(`Post "https://upstream.test/v1/models/m:generateContent?key=` + secret + `": connection refused`)
	op := func(context.Context, credential.Credential) (string, error) {
		return "", underlying
	}

	var buf bytes.Buffer
	log := logger.NewWithOutput(&buf, "debug", false, nil)

	_, err := NewInvoker[string](WithLogger(log)).Invoke(context.Background(), pool, op)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), secret)
	assert.Contains(t, err.Error(), "...4321")
	assert.ErrorIs(t, err, underlying)

	assert.NotContains(t, buf.String(), secret)
	assert.Contains(t, buf.String(), "...4321")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestInvokeRedactsEscapedCredential(t *testing.T) {
	secret := "AIza+Escaped/Key=4321"
	pool := credential.PoolOf(testProvider, credential.New(secret))
	op := func(context.Context, credential.Credential) (string, error) {
		return "", errors.New(`Get "https://upstream.test/?key=` + url.QueryEscape(secret) + `": connection refused`)
	}

	var buf bytes.Buffer
	_, err := NewInvoker[string](WithLogger(logger.NewWithOutput(&buf, "debug", false, nil))).
		Invoke(context.Background(), pool, op)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Escaped")
	assert.NotContains(t, buf.String(), "Escaped")
	assert.Contains(t, err.Error(), "key=...4321")
}

func TestInvokeStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := newPool(t, "k1-aaaaaaa,k2-bbbbbbb,k3-ccccccc")

	calls := 0
	op := func(context.Context, credential.Credential) (string, error) {
		calls++
		cancel()
		return "", errors.New("deadline hit upstream")
	}

	_, err := NewInvoker[string]().Invoke(ctx, pool, op)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "deadline hit upstream")

	var aggErr *AggregatedError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 1, aggErr.Attempts)
}

func TestInvokeAlreadyCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := NewInvoker[string]().Invoke(ctx, newPool(t, "k1-aaaaaaa"), rec.op)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
}

func TestInvokeRecordsSpanAndMetrics(t *testing.T) {
	tp := obtest.NewTestTraceProvider()
	mp := obtest.NewTestMeterProvider()
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	inv := NewInvoker[string](WithTracerProvider(tp), WithMeterProvider(mp))

	rec := &recorder{outcomes: map[string]error{"k1-aaaaaaa": errors.New("status 500")}}
	_, err := inv.Invoke(context.Background(), newPool(t, "k1-aaaaaaa,k2-bbbbbbb"), rec.op)
	require.NoError(t, err)

	failing := &recorder{outcomes: map[string]error{"k3-ccccccc": errors.New("status 401")}}
	_, err = inv.Invoke(context.Background(), newPool(t, "k3-ccccccc"), failing.op)
	require.Error(t, err)

	spans := obtest.NewSpanCollector(t, tp.Exporter).WithName(spanName).AssertCount(2)

	ok := spans.Get(0)
	obtest.AssertSpanAttribute(t, &ok, "provider", testProvider)
	obtest.AssertSpanAttribute(t, &ok, "rotation.state", Succeeded.String())
	obtest.AssertSpanAttribute(t, &ok, "rotation.attempts", 2)
	assert.Len(t, ok.Events, 2)

	failed := spans.Get(1)
	obtest.AssertSpanStatus(t, &failed, codes.Error)
	obtest.AssertSpanAttribute(t, &failed, "rotation.state", ExhaustedAllKeys.String())

	rm := mp.Collect(t)
	assert.Equal(t, int64(1), obtest.SumWithAttribute(rm, metricAttempts, "outcome", outcomeSuccess))
	assert.Equal(t, int64(2), obtest.SumWithAttribute(rm, metricAttempts, "outcome", outcomeFailure))
	obtest.AssertMetricValue(t, rm, metricExhausted, 1)
}

func TestInvokeConcurrentInvocationsAreIndependent(t *testing.T) {
	inv := NewInvoker[int]()
	const workers = 16

	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			pool := credential.PoolOf(testProvider,
				credential.New(fmt.Sprintf("bad-%02d-xxxxxx", w)),
				credential.New(fmt.Sprintf("good-%02d-yyyyy", w)),
			).Shuffle(credential.Identity)

			attempts := 0
			got, err := inv.Invoke(context.Background(), pool, func(_ context.Context, c credential.Credential) (int, error) {
				attempts++
				if c.Secret()[:3] == "bad" {
					return 0, errors.New("rejected")
				}
				return w, nil
			})
			if err == nil && (got != w || attempts != 2) {
				err = fmt.Errorf("worker %d: got %d after %d attempts", w, got, attempts)
			}
			errs <- err
		}(w)
	}

	for w := 0; w < workers; w++ {
		assert.NoError(t, <-errs)
	}
}
