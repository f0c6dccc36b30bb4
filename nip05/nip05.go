// Package nip05 verifies "name@domain" identifiers against the
// counterparty's .well-known/nostr.json document.
package nip05

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nostrkit/internal/cache"
	"nostrkit/nostrerr"
)

// Result is the outcome of verifying an identifier against a pubkey.
type Result struct {
	Verified  bool
	Pubkey    string
	Domain    string
	Relays    []string
	CheckedAt time.Time
}

// Verifier fetches and caches NIP-05 verification results. The zero
// value is not usable; build one with NewVerifier.
type Verifier struct {
	httpClient *http.Client
	cache      cache.CacheBackend
	ttl        time.Duration

	// fetchURLOverride replaces the https://<domain> base with a fixed
	// URL, for tests that serve the .well-known document over plain
	// HTTP from an httptest server.
	fetchURLOverride string
}

// NewVerifier builds a Verifier. httpClient and backend may be nil, in
// which case a 5-second-timeout client and an in-memory cache are used.
func NewVerifier(httpClient *http.Client, backend cache.CacheBackend) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if backend == nil {
		backend = cache.NewMemoryCache(10000, 10*time.Minute)
	}
	return &Verifier{httpClient: httpClient, cache: backend, ttl: 24 * time.Hour}
}

// Verify checks whether identifier ("name@domain") resolves to pubkey,
// using a cached result when a verified one for pubkey is available;
// otherwise it fetches the document again.
func (v *Verifier) Verify(ctx context.Context, identifier, pubkey string) (*Result, error) {
	if identifier == "" || pubkey == "" {
		return nil, fmt.Errorf("%w: identifier and pubkey are required", nostrerr.MalformedField)
	}

	cacheKey := "nip05:" + identifier
	if raw, found, _ := v.cache.Get(ctx, cacheKey); found {
		var cached Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			if cached.Verified && cached.Pubkey == strings.ToLower(pubkey) {
				return &cached, nil
			}
		}
	}

	result, err := v.fetchAndVerify(ctx, identifier, pubkey)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(result); err == nil {
		v.cache.Set(ctx, cacheKey, encoded, v.ttl)
	}
	return result, nil
}

func (v *Verifier) fetchAndVerify(ctx context.Context, identifier, pubkey string) (*Result, error) {
	result := &Result{CheckedAt: time.Now()}

	name, domain, ok := strings.Cut(identifier, "@")
	if !ok || domain == "" {
		return nil, fmt.Errorf("%w: %q is not name@domain", nostrerr.MalformedField, identifier)
	}
	name = strings.ToLower(name)
	domain = strings.ToLower(domain)
	if strings.ContainsAny(domain, "/\\") {
		return nil, fmt.Errorf("%w: invalid domain %q", nostrerr.MalformedField, domain)
	}

	if name == "_" {
		result.Domain = domain
	} else {
		result.Domain = identifier
	}

	url := WellKnownURL(identifier)
	if v.fetchURLOverride != "" {
		url = fmt.Sprintf("%s/.well-known/nostr.json?name=%s", v.fetchURLOverride, name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.ReadError, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.ReadError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", nostrerr.ReadError, url, resp.StatusCode)
	}

	var doc struct {
		Names  map[string]string   `json:"names"`
		Relays map[string][]string `json:"relays"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.MalformedJSON, err)
	}

	verifiedPubkey, ok := doc.Names[name]
	if !ok {
		return result, nil
	}
	verifiedPubkey = strings.ToLower(verifiedPubkey)
	if verifiedPubkey != strings.ToLower(pubkey) {
		return result, nil
	}

	result.Verified = true
	result.Pubkey = verifiedPubkey
	result.Relays = doc.Relays[verifiedPubkey]
	return result, nil
}

// WellKnownURL returns the .well-known/nostr.json URL for identifier.
func WellKnownURL(identifier string) string {
	name, domain, ok := strings.Cut(identifier, "@")
	if !ok {
		return ""
	}
	return fmt.Sprintf("https://%s/.well-known/nostr.json?name=%s", strings.ToLower(domain), strings.ToLower(name))
}
