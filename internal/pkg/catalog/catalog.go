// Package catalog loads the ordered list of gallery links delivered to
// VIP subscribers from a line-delimited text source.
package catalog

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/musevip/musebot/internal/pkg/cache"
	"github.com/musevip/musebot/internal/pkg/env"
)

const sourceCacheKey = "catalog:source:body"

// Source describes where the gallery list lives and how it is split into
// the free preview and the VIP pool. It is constructed once at startup and
// passed into everything that needs links.
type Source struct {
	// Location is a local file path or an http(s) URL. Each non-blank
	// line is one gallery URL.
	Location string
	// FreePreview reserves the first entry as the always-repeatable
	// preview; the VIP pool then starts at the second entry.
	FreePreview bool
	// CacheTTL caches the raw source body in Redis. Zero disables the
	// cache and the source is re-read on every load, which is fine for
	// catalogs of this size.
	CacheTTL time.Duration

	HTTPClient *http.Client
}

// NewSourceFromEnv builds the catalog source from GALLERY_* env values.
func NewSourceFromEnv() *Source {
	ttl := time.Duration(0)
	if raw := strings.TrimSpace(env.GetEnv("GALLERY_CACHE_TTL_SECONDS", "")); raw != "" {
		var secs int
		if _, err := fmt.Sscanf(raw, "%d", &secs); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	return &Source{
		Location:    strings.TrimSpace(env.GetEnv("GALLERY_SOURCE", "")),
		FreePreview: env.GetEnv("GALLERY_FREE_PREVIEW", "true") == "true",
		CacheTTL:    ttl,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Catalog is an immutable, ordered snapshot of gallery links.
type Catalog struct {
	entries     []string
	freePreview bool
}

// New builds a catalog from already-parsed entries. Used by Load and by
// tests that do not want to go through a source.
func New(entries []string, freePreview bool) *Catalog {
	return &Catalog{entries: entries, freePreview: freePreview}
}

// Load reads the source and returns the parsed catalog. A missing or
// empty source yields an empty catalog, never a nil one: "no content
// available" is a normal outcome the delivery engine reports to the user.
func (s *Source) Load(ctx context.Context) (*Catalog, error) {
	if s.Location == "" {
		return New(nil, s.FreePreview), nil
	}

	body, err := s.readBody(ctx)
	if err != nil {
		log.Printf("catalog: failed to read source %s: %v", s.Location, err)
		return New(nil, s.FreePreview), err
	}

	return New(parseLines(body), s.FreePreview), nil
}

func (s *Source) readBody(ctx context.Context) (string, error) {
	if s.CacheTTL > 0 {
		if body, err := cache.Get(sourceCacheKey); err == nil && body != "" {
			return body, nil
		}
	}

	var body string
	var err error
	if strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://") {
		body, err = s.fetchHTTP(ctx)
	} else {
		var raw []byte
		raw, err = os.ReadFile(s.Location)
		body = string(raw)
	}
	if err != nil {
		return "", err
	}

	if s.CacheTTL > 0 {
		if cacheErr := cache.Set(sourceCacheKey, body, s.CacheTTL); cacheErr != nil {
			log.Printf("catalog: failed to cache source body: %v", cacheErr)
		}
	}
	return body, nil
}

func (s *Source) fetchHTTP(ctx context.Context) (string, error) {
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("catalog source returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseLines(body string) []string {
	var entries []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// Entries returns all catalog entries in source order.
func (c *Catalog) Entries() []string {
	return c.entries
}

// Len returns the total number of entries including the preview.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Preview returns the free preview link when the convention is enabled
// and the catalog has at least one entry.
func (c *Catalog) Preview() (string, bool) {
	if !c.freePreview || len(c.entries) == 0 {
		return "", false
	}
	return c.entries[0], true
}

// Pool returns the entries eligible for deduplicated VIP delivery, in
// fixed order. With the preview convention enabled the first entry is
// excluded.
func (c *Catalog) Pool() []string {
	if c.freePreview && len(c.entries) > 0 {
		return c.entries[1:]
	}
	return c.entries
}

// Fingerprint returns the stable dedup key for a gallery URL. Deliveries
// are recorded and compared by this hash, never by the raw URL.
func Fingerprint(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
