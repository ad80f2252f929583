package service

import (
	"context"
	"testing"
	"time"

	"pindrop/pin-api/internal/pinerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(st ObjectStorage) (*UploadCoordinator, *[]time.Duration) {
	u := NewUploadCoordinator(st)
	u.Now = func() time.Time { return testNow }

	var waits []time.Duration
	u.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	return u, &waits
}

func TestUploadBeginKey(t *testing.T) {
	st := newFakeStorage()
	u, _ := newTestCoordinator(st)

	sess, err := u.Begin(context.Background(), "some/dir/report final.pdf")
	require.NoError(t, err)

	// Directory components are stripped, the issue time prefixes the key
	assert.Equal(t, "1756684800000-report final.pdf", sess.Key)
	assert.Equal(t, "https://storage.test/upload/"+sess.Key, sess.UploadURL)
	assert.Equal(t, testNow.UnixMilli(), sess.IssuedAt)
}

func TestUploadFinalizeImmediate(t *testing.T) {
	st := newFakeStorage()
	st.put("abc", 1234)

	u, waits := newTestCoordinator(st)

	fin, err := u.Finalize(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", fin.Key)
	assert.Equal(t, int64(1234), fin.Size)
	assert.Equal(t, "https://cdn.test/abc", fin.AccessURL)
	assert.Empty(t, *waits)
}

func TestUploadFinalizeBackoffSchedule(t *testing.T) {
	st := newFakeStorage()
	st.put("abc", 1234)
	st.pendingReads["abc"] = 3

	u, waits := newTestCoordinator(st)

	fin, err := u.Finalize(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), fin.Size)

	assert.Equal(t, []time.Duration{
		600 * time.Millisecond,
		1200 * time.Millisecond,
		2400 * time.Millisecond,
	}, *waits)
}

func TestUploadFinalizeSyncTimeout(t *testing.T) {
	st := newFakeStorage()

	u, waits := newTestCoordinator(st)

	_, err := u.Finalize(context.Background(), "never-lands")
	require.Error(t, err)
	assert.True(t, pinerr.Is(err, pinerr.CodeSyncTimeout), "unexpected error: %v", err)

	var pe *pinerr.Err
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable())

	// Full schedule before giving up, doubling from 600ms
	assert.Equal(t, []time.Duration{
		600 * time.Millisecond,
		1200 * time.Millisecond,
		2400 * time.Millisecond,
		4800 * time.Millisecond,
		9600 * time.Millisecond,
	}, *waits)
}

func TestUploadFinalizeContextCancelled(t *testing.T) {
	st := newFakeStorage()

	u := NewUploadCoordinator(st)
	u.Now = func() time.Time { return testNow }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The real wait honors ctx, so a cancelled context aborts the first
	// backoff immediately
	_, err := u.Finalize(ctx, "never-lands")
	assert.ErrorIs(t, err, context.Canceled)
}
