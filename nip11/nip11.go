// Package nip11 fetches a relay's NIP-11 information document over
// HTTP(S) with the "application/nostr+json" Accept header.
package nip11

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nostrkit/nostrerr"
)

// Info is a relay's self-reported capability document.
type Info struct {
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Pubkey        string   `json:"pubkey,omitempty"`
	Contact       string   `json:"contact,omitempty"`
	SupportedNIPs []int    `json:"supported_nips,omitempty"`
	Software      string   `json:"software,omitempty"`
	Version       string   `json:"version,omitempty"`
	Limitation    *Limits  `json:"limitation,omitempty"`
	RelayCountries []string `json:"relay_countries,omitempty"`
}

// Limits is the "limitation" sub-object a relay may report.
type Limits struct {
	MaxMessageLength int  `json:"max_message_length,omitempty"`
	MaxSubscriptions int  `json:"max_subscriptions,omitempty"`
	MaxFilters       int  `json:"max_filters,omitempty"`
	MaxLimit         int  `json:"max_limit,omitempty"`
	AuthRequired     bool `json:"auth_required,omitempty"`
	PaymentRequired  bool `json:"payment_required,omitempty"`
}

// Fetch retrieves the NIP-11 document for a relay given its ws(s):// URL.
func Fetch(ctx context.Context, client *http.Client, relayURL string) (*Info, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	httpURL := toHTTPURL(relayURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.ReadError, err)
	}
	req.Header.Set("Accept", "application/nostr+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.ReadError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", nostrerr.ReadError, httpURL, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.MalformedJSON, err)
	}
	return &info, nil
}

// toHTTPURL rewrites a ws(s):// relay URL to the http(s):// URL its
// NIP-11 document is served from.
func toHTTPURL(relayURL string) string {
	switch {
	case strings.HasPrefix(relayURL, "wss://"):
		return "https://" + strings.TrimPrefix(relayURL, "wss://")
	case strings.HasPrefix(relayURL, "ws://"):
		return "http://" + strings.TrimPrefix(relayURL, "ws://")
	default:
		return relayURL
	}
}

// SupportsNIP reports whether info advertises support for nip.
func (i *Info) SupportsNIP(nip int) bool {
	for _, n := range i.SupportedNIPs {
		if n == nip {
			return true
		}
	}
	return false
}
