package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// BenchmarkBackoff_ImmediateSuccess measures the path where the daemon
// answers on the first dial.
func BenchmarkBackoff_ImmediateSuccess(b *testing.B) {
	bo := DialBackoff()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(int) error { return nil }) //nolint:errcheck
	}
}

func BenchmarkBackoff_PermanentError(b *testing.B) {
	bo := DialBackoff()
	ctx := context.Background()
	fatal := errors.New("fatal")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(int) error { return Permanent(fatal) }) //nolint:errcheck
	}
}

func BenchmarkJitter(b *testing.B) {
	d := 100 * time.Millisecond
	for i := 0; i < b.N; i++ {
		_ = addJitter(d)
	}
}
