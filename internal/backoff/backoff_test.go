package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		current time.Duration
		want    time.Duration
	}{
		{"doubles", 200 * time.Millisecond, 400 * time.Millisecond},
		{"capped", 4 * time.Second, 5 * time.Second},
		{"already at cap", 5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.current, 5*time.Second))
		})
	}
}

func TestSleep_Elapses(t *testing.T) {
	assert.True(t, Sleep(context.Background(), time.Millisecond))
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, time.Hour))
}

func TestSleep_ZeroDuration(t *testing.T) {
	assert.True(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, 0), "a done context stops the caller even without a wait")
	assert.False(t, Sleep(ctx, -time.Second))
}
