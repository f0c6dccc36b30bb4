// Package content extracts hashtag and mention references from event
// text and turns them into the corresponding NIP-01 "t"/"p" tags.
package content

import (
	"regexp"
	"strings"

	"nostrkit/codec"
)

var (
	hashtagRegex = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	mentionRegex = regexp.MustCompile(`@(npub1[a-z0-9]+|nprofile1[a-z0-9]+)`)
)

// Options controls which references ParseTags extracts.
type Options struct {
	ExtractHashtags bool
	ExtractMentions bool
	// HashtagKey is the tag name used for hashtags; NIP-01/NIP-12 use "t".
	HashtagKey string
}

// DefaultOptions extracts both hashtags and mentions, using "t" as the
// hashtag tag key.
func DefaultOptions() Options {
	return Options{ExtractHashtags: true, ExtractMentions: true, HashtagKey: "t"}
}

// ParseTags scans text and returns existingTags with any newly-found
// hashtag/mention tags appended, each deduplicated against both the
// existing tags and each other. Tag order: existingTags first, then
// hashtags, then mentions, each in first-seen order within text.
func ParseTags(text string, existingTags [][]string, opts Options) [][]string {
	hashtagKey := opts.HashtagKey
	if hashtagKey == "" {
		hashtagKey = "t"
	}

	seen := make(map[string]bool, len(existingTags))
	for _, tag := range existingTags {
		if len(tag) >= 2 {
			seen[tag[0]+":"+tag[1]] = true
		}
	}

	result := make([][]string, len(existingTags))
	copy(result, existingTags)

	if opts.ExtractHashtags {
		for _, m := range hashtagRegex.FindAllStringSubmatch(text, -1) {
			tag := strings.ToLower(m[1])
			key := hashtagKey + ":" + tag
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, []string{hashtagKey, tag})
		}
	}

	if opts.ExtractMentions {
		for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
			identifier := m[1]
			pubkey, err := mentionToPubkey(identifier)
			if err != nil {
				continue
			}
			key := "p:" + pubkey
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, []string{"p", pubkey})
		}
	}

	return result
}

func mentionToPubkey(identifier string) (string, error) {
	if strings.HasPrefix(identifier, "npub1") {
		return codec.AutoToHex(identifier)
	}
	// nprofile1 TLV decoding lives outside this package's scope; a
	// caller needing nprofile mentions should resolve it separately
	// and pass the resulting pubkey through existingTags instead.
	return "", errNotSupported
}

var errNotSupported = &unsupportedIdentifierError{}

type unsupportedIdentifierError struct{}

func (e *unsupportedIdentifierError) Error() string {
	return "nprofile mention resolution is not supported by this parser"
}

// ExtractHashtags returns the lowercase hashtags found in text, in
// first-seen order, without the leading "#".
func ExtractHashtags(text string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, m := range hashtagRegex.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
