package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetryPolicy_Success(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryPolicy_EventualSuccess(t *testing.T) {
	attempts := 0
	err := fastPolicy(5).Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return llms.NewError(llms.ErrCodeRateLimit, "openai", "slow down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	attempts := 0
	transient := errors.New("connection reset")
	err := fastPolicy(3).Do(context.Background(), func() error {
		attempts++
		return transient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, transient)
	assert.NotErrorIs(t, err, ErrEmbeddingFatal)
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestRetryPolicy_PermanentStopsImmediately(t *testing.T) {
	codes := []llms.ErrorCode{
		llms.ErrCodeAuthentication,
		llms.ErrCodeInvalidRequest,
		llms.ErrCodeResourceNotFound,
		llms.ErrCodeQuotaExceeded,
	}
	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			attempts := 0
			err := fastPolicy(5).Do(context.Background(), func() error {
				attempts++
				return llms.NewError(code, "openai", "nope")
			})
			assert.ErrorIs(t, err, ErrEmbeddingFatal)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetryPolicy_CustomClassifier(t *testing.T) {
	fatal := errors.New("fatal")
	policy := fastPolicy(5)
	policy.IsPermanent = func(err error) bool { return errors.Is(err, fatal) }

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return fatal
	})
	assert.ErrorIs(t, err, ErrEmbeddingFatal)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryPolicy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond}.Do(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryPolicy_Backoff(t *testing.T) {
	var stamps []time.Time
	err := RetryPolicy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}.Do(context.Background(), func() error {
		stamps = append(stamps, time.Now())
		return errors.New("error")
	})
	require.Error(t, err)
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestRetryPolicy_InvalidMaxAttempts(t *testing.T) {
	called := false
	err := RetryPolicy{}.Do(context.Background(), func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.False(t, called)
}
