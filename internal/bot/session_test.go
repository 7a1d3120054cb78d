package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUSessions_PutGetDelete(t *testing.T) {
	s := NewLRUSessions(10, time.Hour)
	s.Put(1, Session{Flow: FlowCheckout, Step: StepAddress, Phone: "0501234567"})

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, StepAddress, got.Step)
	assert.Equal(t, 1, s.Len())

	s.Delete(1)
	_, ok = s.Get(1)
	assert.False(t, ok)
}

func TestLRUSessions_EvictsBeyondCapacity(t *testing.T) {
	s := NewLRUSessions(2, time.Hour)
	s.Put(1, Session{Flow: FlowSearch})
	s.Put(2, Session{Flow: FlowSearch})
	s.Put(3, Session{Flow: FlowSearch})

	_, ok := s.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestLRUSessions_Expire(t *testing.T) {
	s := NewLRUSessions(10, 20*time.Millisecond)
	s.Put(1, Session{Flow: FlowCheckout})
	time.Sleep(60 * time.Millisecond)

	_, ok := s.Get(1)
	assert.False(t, ok)
}
