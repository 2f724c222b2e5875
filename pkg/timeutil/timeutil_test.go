package timeutil

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	assert.Equal(t, time.Duration(0), ComputeJitter(0, rng))
	assert.Equal(t, time.Duration(0), ComputeJitter(-time.Second, rng))

	for i := 0; i < 100; i++ {
		got := ComputeJitter(100*time.Millisecond, rng)
		assert.GreaterOrEqual(t, got, time.Duration(0))
		assert.Less(t, got, 100*time.Millisecond)
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 10*time.Second)
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name  string
		count int
		want  time.Duration
	}{
		{name: "first attempt uses initial", count: 1, want: time.Second},
		{name: "second attempt doubles", count: 2, want: 2 * time.Second},
		{name: "third attempt quadruples", count: 3, want: 4 * time.Second},
		{name: "capped at max", count: 10, want: 10 * time.Second},
		{name: "zero count treated as first", count: 0, want: time.Second},
		{name: "negative count treated as first", count: -3, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExponentialBackoffDelay(tt.count, 0, rng, param))
		})
	}
}

func TestExponentialBackoffDelay_WithJitter(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 30*time.Second)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		got := ExponentialBackoffDelay(2, 100*time.Millisecond, rng, param)
		assert.GreaterOrEqual(t, got, 2*time.Second)
		assert.Less(t, got, 2*time.Second+100*time.Millisecond)
	}
}
