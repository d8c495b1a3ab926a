package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFactor:   0.1,
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 0.25, cfg.JitterFactor)
}

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         *Config
		wantRetries int
		wantInitial time.Duration
		wantMax     time.Duration
		wantJitter  float64
	}{
		{"nil config", nil, 3, 100 * time.Millisecond, 5 * time.Second, 0.25},
		{"zero values", &Config{}, 3, 100 * time.Millisecond, 5 * time.Second, 0.25},
		{"negative values", &Config{MaxRetries: -1, InitialBackoff: -1, MaxBackoff: -1, JitterFactor: -1},
			3, 100 * time.Millisecond, 5 * time.Second, 0.25},
		{"custom values", &Config{MaxRetries: 5, InitialBackoff: time.Second, MaxBackoff: time.Minute, JitterFactor: 0.5},
			5, time.Second, time.Minute, 0.5},
		{"jitter capped", &Config{JitterFactor: 3}, 3, 100 * time.Millisecond, 5 * time.Second, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantRetries, tt.cfg.GetMaxRetries())
			assert.Equal(t, tt.wantInitial, tt.cfg.GetInitialBackoff())
			assert.Equal(t, tt.wantMax, tt.cfg.GetMaxBackoff())
			assert.Equal(t, tt.wantJitter, tt.cfg.GetJitterFactor())
		})
	}
}

func TestDo_Success(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_BudgetExhausted(t *testing.T) {
	t.Parallel()

	errUnavailable := errors.New("unavailable")
	calls := 0
	err := Do(context.Background(), fastConfig(2), func() error {
		calls++
		return errUnavailable
	}, nil)

	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, 3, calls)
}

func TestDo_Permanent(t *testing.T) {
	t.Parallel()

	errDenied := errors.New("permission denied")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return Permanent(errDenied)
	}, nil)

	assert.Equal(t, errDenied, err)
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Permanent(nil))
}

func TestDo_ShouldRetry(t *testing.T) {
	t.Parallel()

	errFatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return errFatal
	}, &Options{
		ShouldRetry: func(err error) bool { return !errors.Is(err, errFatal) },
	})

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetry(t *testing.T) {
	t.Parallel()

	var attempts []int
	_ = Do(context.Background(), fastConfig(2), func() error {
		return errors.New("unavailable")
	}, &Options{
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			attempts = append(attempts, attempt)
			assert.Error(t, err)
			assert.Positive(t, backoff)
		},
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCanceledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(3), func() error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	err := Do(ctx, cfg, func() error {
		cancel()
		return errors.New("unavailable")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{"first", 0, 100 * time.Millisecond, 125 * time.Millisecond},
		{"second", 1, 200 * time.Millisecond, 250 * time.Millisecond},
		{"third", 2, 400 * time.Millisecond, 500 * time.Millisecond},
		{"capped", 10, time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Backoff(tt.attempt, 100*time.Millisecond, time.Second, 0.25)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestBackoff_NoJitter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 400*time.Millisecond, Backoff(2, 100*time.Millisecond, time.Second, 0))
}
