package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellkeep/config"
)

func fastBackoff(attempts int) *Backoff {
	return &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   1.5,
		MaxAttempts:  attempts,
	}
}

func TestBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := fastBackoff(10).Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("permission denied")
	err := DialBackoff().Do(context.Background(), func(int) error {
		calls++
		return Permanent(fatal)
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_MaxAttempts(t *testing.T) {
	calls := 0
	cause := errors.New("no such file or directory")
	err := fastBackoff(3).Do(context.Background(), func(int) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3 attempts")
	assert.Equal(t, 3, calls)
}

func TestBackoff_ContextCancelled(t *testing.T) {
	b := &Backoff{InitialDelay: 5 * time.Second, MaxAttempts: 100}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Do(ctx, func(int) error { return errors.New("fail") })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoff_OnRetryObservesEachWait(t *testing.T) {
	b := fastBackoff(3)
	var seen []int
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		assert.Positive(t, wait)
	}

	_ = b.Do(context.Background(), func(int) error { return errors.New("fail") })
	assert.Equal(t, []int{1, 2}, seen)
}

func TestBackoff_ZeroValueUsesDialDefaults(t *testing.T) {
	b := &Backoff{MaxAttempts: 2}
	start := time.Now()
	_ = b.Do(context.Background(), func(int) error { return errors.New("fail") })

	assert.GreaterOrEqual(t, time.Since(start), config.DefaultDialBackoff)
}

func TestDialBackoff(t *testing.T) {
	b := DialBackoff()
	assert.Equal(t, config.DefaultDialAttempts, b.MaxAttempts)
	assert.Equal(t, config.DefaultDialBackoff, b.InitialDelay)
	assert.True(t, b.Jitter)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"permanent", Permanent(errors.New("x")), true},
		{"plain", errors.New("x"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}

func TestJitter_Range(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := addJitter(d)
		assert.GreaterOrEqual(t, j, time.Duration(float64(d)*0.74))
		assert.LessOrEqual(t, j, time.Duration(float64(d)*1.26))
	}
}
