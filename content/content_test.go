package content

import (
	"testing"

	"nostrkit/codec"
	"nostrkit/identity"
)

func TestParseTagsExtractsHashtags(t *testing.T) {
	tags := ParseTags("hello #nostr and #Bitcoin world", nil, DefaultOptions())
	if len(tags) != 2 {
		t.Fatalf("tags = %v, want 2 entries", tags)
	}
	if tags[0][0] != "t" || tags[0][1] != "nostr" {
		t.Fatalf("tags[0] = %v", tags[0])
	}
	if tags[1][0] != "t" || tags[1][1] != "bitcoin" {
		t.Fatalf("tags[1] = %v", tags[1])
	}
}

func TestParseTagsDedupesAgainstExisting(t *testing.T) {
	existing := [][]string{{"t", "nostr"}}
	tags := ParseTags("#nostr #nostr #zaps", existing, DefaultOptions())
	if len(tags) != 2 {
		t.Fatalf("tags = %v, want existing + zaps only", tags)
	}
}

func TestParseTagsExtractsNpubMentions(t *testing.T) {
	id, err := identity.FromHex("67dea2ed018072d675f5415ecfaed7d2597555e202d85b3d65ea4e58d2d92ffa")
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}

	pubkey := id.PublicKeyHex()
	pubkeyBytes, err := codec.DecodeHex(pubkey, 32)
	if err != nil {
		t.Fatalf("DecodeHex: %v", err)
	}
	npub, err := codec.EncodeBech32("npub", pubkeyBytes)
	if err != nil {
		t.Fatalf("EncodeBech32: %v", err)
	}

	tags := ParseTags("hey @"+npub+" check this out", nil, DefaultOptions())
	found := false
	for _, tag := range tags {
		if tag[0] == "p" {
			if tag[1] != pubkey {
				t.Fatalf("p tag = %v, want pubkey %s", tag, pubkey)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("tags = %v, want a p tag for %s", tags, pubkey)
	}
}

func TestParseTagsSkipsInvalidMention(t *testing.T) {
	tags := ParseTags("hey @npub1x not a ref", nil, DefaultOptions())
	for _, tag := range tags {
		if tag[0] == "p" {
			t.Fatalf("unexpected p tag from invalid mention: %v", tag)
		}
	}
}

func TestExtractHashtagsDeduplicatesCaseInsensitively(t *testing.T) {
	got := ExtractHashtags("#Go #go #rust")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 unique hashtags", got)
	}
}
