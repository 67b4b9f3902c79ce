package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

// storedCookie is the on-disk form of a session cookie
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// CookieStore persists session cookies set by the backend so that later
// invocations send them again, the way a browser would for a credentialed
// request.
type CookieStore struct {
	dir    string
	logger zerolog.Logger
}

// CookieStoreOption configures a CookieStore
type CookieStoreOption func(*CookieStore)

// WithCookieLogger sets the logger that reports failed cookie writes
func WithCookieLogger(logger zerolog.Logger) CookieStoreOption {
	return func(s *CookieStore) {
		s.logger = logger
	}
}

// NewCookieStore creates a cookie store rooted at dir
func NewCookieStore(dir string, opts ...CookieStoreOption) *CookieStore {
	s := &CookieStore{dir: dir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CookieStore) path(baseURL string) string {
	sum := sha256.Sum256([]byte(baseURL))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:8])+".json")
}

// Jar returns a cookie jar for baseURL preloaded with stored cookies.
// Cookies received later are written back to disk.
func (s *CookieStore) Jar(baseURL string) (*PersistentJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	jar := &PersistentJar{
		inner:   inner,
		file:    s.path(baseURL),
		origin:  u,
		cookies: make(map[string]storedCookie),
		logger:  s.logger,
	}

	if err := jar.load(); err != nil {
		return nil, err
	}
	return jar, nil
}

// Clear removes stored cookies for baseURL
func (s *CookieStore) Clear(baseURL string) error {
	if err := os.Remove(s.path(baseURL)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

// PersistentJar is an http.CookieJar that mirrors cookies for one API origin
// to a file.
type PersistentJar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	file    string
	origin  *url.URL
	cookies map[string]storedCookie
	logger  zerolog.Logger
	lastErr error
}

// SetCookies implements http.CookieJar
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(j.cookies, c.Name)
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.cookies[c.Name] = storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}

	// A failed write only costs the next invocation its session
	j.lastErr = j.save()
	if j.lastErr != nil {
		j.logger.Warn().Err(j.lastErr).Str("file", j.file).Msg("Failed to persist session cookies")
	}
}

// LastErr returns the error of the most recent write to disk, if any
func (j *PersistentJar) LastErr() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

// Cookies implements http.CookieJar
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// Len returns the number of cookies currently held
func (j *PersistentJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}

func (j *PersistentJar) load() error {
	data, err := os.ReadFile(j.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse cookie file: %w", err)
	}

	var restore []*http.Cookie
	for _, c := range stored {
		if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
			continue
		}
		j.cookies[c.Name] = c
		restore = append(restore, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	j.inner.SetCookies(j.origin, restore)
	return nil
}

func (j *PersistentJar) save() error {
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		stored = append(stored, c)
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.file), 0700); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}

	if err := os.WriteFile(j.file, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}
