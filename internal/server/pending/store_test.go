package pending

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestVerify_SuccessConsumesEntry(t *testing.T) {
	s := NewStore(5)
	s.Put("D1", "h0427", t0, 5*time.Minute)

	require.NoError(t, s.Verify("D1", "h0427", t0.Add(time.Minute)))

	_, ok := s.Get("D1")
	assert.False(t, ok)
	assert.ErrorIs(t, s.Verify("D1", "h0427", t0.Add(time.Minute)), common.ErrorNoPendingCode)
}

func TestVerify_MismatchKeepsEntryAndCountsAttempt(t *testing.T) {
	s := NewStore(5)
	s.Put("D1", "h0427", t0, 5*time.Minute)

	err := s.Verify("D1", "h9999", t0)
	assert.ErrorIs(t, err, common.ErrorIncorrectCode)

	e, ok := s.Get("D1")
	require.True(t, ok)
	assert.Equal(t, 1, e.Attempts)

	require.NoError(t, s.Verify("D1", "h0427", t0))
}

func TestVerify_NoEntry(t *testing.T) {
	s := NewStore(5)
	assert.ErrorIs(t, s.Verify("nope", "h", t0), common.ErrorNoPendingCode)
}

func TestVerify_ExpiredEntryIsRemoved(t *testing.T) {
	s := NewStore(5)
	s.Put("D1", "h0427", t0, 5*time.Minute)

	err := s.Verify("D1", "h0427", t0.Add(5*time.Minute))
	assert.ErrorIs(t, err, common.ErrorCodeExpired)
	assert.Equal(t, 0, s.Len())
}

func TestVerify_AttemptLimit(t *testing.T) {
	s := NewStore(3)
	s.Put("D1", "h0427", t0, 5*time.Minute)

	assert.ErrorIs(t, s.Verify("D1", "bad", t0), common.ErrorIncorrectCode)
	assert.ErrorIs(t, s.Verify("D1", "bad", t0), common.ErrorIncorrectCode)
	assert.ErrorIs(t, s.Verify("D1", "bad", t0), common.ErrorTooManyAttempts)

	// the correct code no longer helps once the entry is gone
	assert.ErrorIs(t, s.Verify("D1", "h0427", t0), common.ErrorNoPendingCode)
}

func TestVerify_NoLimitWhenDisabled(t *testing.T) {
	s := NewStore(0)
	s.Put("D1", "h0427", t0, 5*time.Minute)
	for i := 0; i < 50; i++ {
		require.ErrorIs(t, s.Verify("D1", "bad", t0), common.ErrorIncorrectCode)
	}
	require.NoError(t, s.Verify("D1", "h0427", t0))
}

func TestPut_ReplacesPreviousCode(t *testing.T) {
	s := NewStore(5)
	s.Put("D1", "first", t0, 5*time.Minute)
	s.Put("D1", "second", t0.Add(time.Second), 5*time.Minute)

	assert.Equal(t, 1, s.Len())
	assert.ErrorIs(t, s.Verify("D1", "first", t0.Add(2*time.Second)), common.ErrorIncorrectCode)
	assert.NoError(t, s.Verify("D1", "second", t0.Add(2*time.Second)))
}

func TestPutIfIdle(t *testing.T) {
	s := NewStore(5)

	require.NoError(t, s.PutIfIdle("D1", "a", t0, 5*time.Minute, 30*time.Second))
	assert.ErrorIs(t, s.PutIfIdle("D1", "b", t0.Add(10*time.Second), 5*time.Minute, 30*time.Second), common.ErrorTooManyRequests)

	e, _ := s.Get("D1")
	assert.Equal(t, "a", e.CodeHash, "throttled request must not replace the code")

	require.NoError(t, s.PutIfIdle("D1", "c", t0.Add(31*time.Second), 5*time.Minute, 30*time.Second))
	e, _ = s.Get("D1")
	assert.Equal(t, "c", e.CodeHash)

	// interval 0 never throttles
	require.NoError(t, s.PutIfIdle("D1", "d", t0.Add(32*time.Second), 5*time.Minute, 0))
}

func TestSweep(t *testing.T) {
	s := NewStore(5)
	s.Put("old", "h", t0, time.Minute)
	s.Put("new", "h", t0, time.Hour)

	assert.Equal(t, 1, s.Sweep(t0.Add(2*time.Minute)))
	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	s := NewStore(5)
	s.Put("D1", "h", t0, time.Minute)
	s.Delete("D1")
	s.Delete("missing")
	assert.Equal(t, 0, s.Len())
}

func TestDeleteIf(t *testing.T) {
	s := NewStore(5)
	s.Put("D1", "old", t0, time.Minute)
	s.Put("D1", "new", t0.Add(time.Second), time.Minute)

	assert.False(t, s.DeleteIf("D1", "old"), "a replaced code must not remove its successor")
	e, ok := s.Get("D1")
	require.True(t, ok)
	assert.Equal(t, "new", e.CodeHash)

	assert.True(t, s.DeleteIf("D1", "new"))
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.DeleteIf("missing", "new"))
}

func TestVerify_ConcurrentSingleUse(t *testing.T) {
	s := NewStore(0)
	s.Put("D1", "h0427", t0, 5*time.Minute)

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Verify("D1", "h0427", t0) == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
}
