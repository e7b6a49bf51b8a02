package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	return NewFSStore(t.TempDir(), "http://localhost:8080/files", "test-secret")
}

func TestPutOpenDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, "ticket-1/report.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "ticket-1/report.txt", ref)

	data, err := store.Open(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	gone, err := store.Delete(ctx, ref)
	require.NoError(t, err)
	assert.True(t, gone)

	_, err = store.Open(ref)
	assert.Error(t, err)

	// deleting a missing blob is still a successful end state
	gone, err = store.Delete(ctx, ref)
	require.NoError(t, err)
	assert.True(t, gone)
}

func TestSignedURLRoundTrip(t *testing.T) {
	store := newTestStore(t)

	signed, err := store.SignedURL("ticket-1/report.txt", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://localhost:8080/files/"))

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	ref := strings.TrimPrefix(parsed.Path, "/files/")
	ref, err = url.PathUnescape(ref)
	require.NoError(t, err)

	query := parsed.Query()
	require.NoError(t, store.VerifyRawQuery(ref, query.Get("expires"), query.Get("sig")))
}

func TestSignedURLExpiry(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := newTestStore(t).WithClock(func() time.Time { return now })

	signed, err := store.SignedURL("ticket-1/report.txt", time.Minute)
	require.NoError(t, err)
	parsed, _ := url.Parse(signed)
	query := parsed.Query()

	require.NoError(t, store.Verify("ticket-1/report.txt", mustInt(t, query.Get("expires")), query.Get("sig")))

	// step the clock one second past the window
	now = now.Add(time.Minute + time.Second)
	err = store.Verify("ticket-1/report.txt", mustInt(t, query.Get("expires")), query.Get("sig"))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSignedURLTamperDetection(t *testing.T) {
	store := newTestStore(t)

	signed, err := store.SignedURL("ticket-1/report.txt", time.Hour)
	require.NoError(t, err)
	parsed, _ := url.Parse(signed)
	query := parsed.Query()
	expires := mustInt(t, query.Get("expires"))
	sig := query.Get("sig")

	// different ref
	assert.ErrorIs(t, store.Verify("ticket-1/other.txt", expires, sig), ErrBadSignature)
	// extended expiry
	assert.ErrorIs(t, store.Verify("ticket-1/report.txt", expires+3600, sig), ErrBadSignature)
	// mangled signature
	assert.ErrorIs(t, store.Verify("ticket-1/report.txt", expires, "deadbeef"), ErrBadSignature)
	// unparsable expiry
	assert.ErrorIs(t, store.VerifyRawQuery("ticket-1/report.txt", "not-a-number", sig), ErrBadSignature)

	// a different secret never validates
	other := NewFSStore(t.TempDir(), "http://localhost:8080/files", "other-secret")
	assert.ErrorIs(t, other.Verify("ticket-1/report.txt", expires, sig), ErrBadSignature)
}

func TestSignedURLRejectsNonPositiveTTL(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SignedURL("ref", 0)
	assert.Error(t, err)
}

func TestCleanRefStripsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, "../../etc/passwd", []byte("nope"))
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", ref)

	ref, err = store.Put(ctx, "/a/./b//c.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "a/b/c.txt", ref)
}

func mustInt(t *testing.T, raw string) int64 {
	t.Helper()
	var v int64
	_, err := fmt.Sscanf(raw, "%d", &v)
	require.NoError(t, err)
	return v
}
