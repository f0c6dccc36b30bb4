package nip11

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchParsesInfoDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/nostr+json" {
			t.Errorf("Accept header = %q", got)
		}
		w.Write([]byte(`{"name":"test relay","supported_nips":[1,11,13],"limitation":{"max_message_length":65536,"auth_required":false}}`))
	}))
	defer srv.Close()

	info, err := Fetch(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Name != "test relay" {
		t.Fatalf("name = %q", info.Name)
	}
	if !info.SupportsNIP(11) {
		t.Fatal("expected NIP-11 to be supported")
	}
	if info.SupportsNIP(44) {
		t.Fatal("did not expect NIP-44 support")
	}
	if info.Limitation == nil || info.Limitation.MaxMessageLength != 65536 {
		t.Fatalf("limitation = %+v", info.Limitation)
	}
}

func TestToHTTPURLRewritesWebsocketScheme(t *testing.T) {
	cases := map[string]string{
		"wss://relay.example/":  "https://relay.example/",
		"ws://localhost:7777":   "http://localhost:7777",
		"https://already.http": "https://already.http",
	}
	for in, want := range cases {
		if got := toHTTPURL(in); got != want {
			t.Errorf("toHTTPURL(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestFetchSurfacesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
