package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrExpired marks a signed URL whose window has passed.
var ErrExpired = errors.New("signed url expired")

// ErrBadSignature marks a tampered or foreign signature.
var ErrBadSignature = errors.New("invalid signature")

// FSStore keeps blobs on the local filesystem and signs retrieval URLs
// with an HMAC over (ref, expiry).
type FSStore struct {
	baseDir string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewFSStore builds the store. baseURL is the public prefix the
// download route is mounted on.
func NewFSStore(baseDir, baseURL, secret string) *FSStore {
	return &FSStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Tests use this to step past a
// URL's expiry without sleeping.
func (s *FSStore) WithClock(now func() time.Time) *FSStore {
	s.now = now
	return s
}

// Put writes the bytes under path and returns the ref.
func (s *FSStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := cleanRef(path)
	full := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

// Delete removes the blob for ref.
func (s *FSStore) Delete(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(cleanRef(ref)))
	err := os.Remove(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, err
}

// Open returns the blob bytes for a validated ref.
func (s *FSStore) Open(ref string) ([]byte, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(cleanRef(ref)))
	return os.ReadFile(full)
}

// SignedURL returns baseURL/ref?expires=..&sig=.. valid for ttl.
func (s *FSStore) SignedURL(ref string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	ref = cleanRef(ref)
	expires := s.now().Add(ttl).Unix()
	sig := s.sign(ref, expires)
	return fmt.Sprintf("%s/%s?expires=%d&sig=%s", s.baseURL, url.PathEscape(ref), expires, sig), nil
}

// Verify checks the signature and expiry for a download request.
func (s *FSStore) Verify(ref string, expires int64, sig string) error {
	ref = cleanRef(ref)
	expected := s.sign(ref, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	if s.now().Unix() > expires {
		return ErrExpired
	}
	return nil
}

// VerifyRawQuery is a convenience for handlers holding the raw values.
func (s *FSStore) VerifyRawQuery(ref, expiresStr, sig string) error {
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	return s.Verify(ref, expires, sig)
}

func (s *FSStore) sign(ref string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(ref))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// cleanRef normalizes a ref to a relative slash path with no traversal.
func cleanRef(ref string) string {
	ref = strings.TrimLeft(filepath.ToSlash(ref), "/")
	parts := strings.Split(ref, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}
