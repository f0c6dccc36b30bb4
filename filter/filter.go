// Package filter implements Nostr REQ filters and the client-to-relay
// wire frames (REQ, CLOSE, EVENT) built from them.
package filter

import (
	"bytes"
	"encoding/json"

	"nostrkit/event"
)

// ReqFilter selects events a subscription is interested in. A nil or
// empty field matches any value; a non-empty field requires the event
// to match at least one listed value (OR within a field, AND across
// fields). Tag filters use the "#<letter>" JSON key convention.
type ReqFilter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []uint16 `json:"kinds,omitempty"`
	Since   *uint64  `json:"since,omitempty"`
	Until   *uint64  `json:"until,omitempty"`
	Limit   *int     `json:"limit,omitempty"`

	// Tags holds arbitrary single-letter tag filters, keyed by letter
	// ("e", "p", ...) without the leading "#". MarshalJSON emits each
	// as "#<letter>".
	Tags map[string][]string `json:"-"`
}

type reqFilterAlias ReqFilter

// MarshalJSON folds Tags into "#<letter>" keys appended after the
// named fields, in the order the named fields are declared, matching
// the wire form a relay expects.
func (f ReqFilter) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(reqFilterAlias(f))
	if err != nil {
		return nil, err
	}
	if len(f.Tags) == 0 {
		return base, nil
	}

	letters := make([]string, 0, len(f.Tags))
	for letter := range f.Tags {
		letters = append(letters, letter)
	}
	sortStrings(letters)

	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(base, []byte("}")))
	if len(base) > len("{}") {
		buf.WriteByte(',')
	}
	for i, letter := range letters {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal("#" + letter)
		if err != nil {
			return nil, err
		}
		values, err := json.Marshal(f.Tags[letter])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores Tags from any "#<letter>" key.
func (f *ReqFilter) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	var alias reqFilterAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*f = ReqFilter(alias)

	for key, raw := range obj {
		if len(key) < 2 || key[0] != '#' {
			continue
		}
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return err
		}
		if f.Tags == nil {
			f.Tags = make(map[string][]string)
		}
		f.Tags[key[1:]] = values
	}
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ReqFrame encodes a ["REQ", subID, filter, filter, ...] client frame.
func ReqFrame(subID string, filters ...ReqFilter) ([]byte, error) {
	parts := make([]interface{}, 0, len(filters)+2)
	parts = append(parts, "REQ", subID)
	for _, f := range filters {
		parts = append(parts, f)
	}
	return marshalCompact(parts)
}

// CloseFrame encodes a ["CLOSE", subID] client frame.
func CloseFrame(subID string) ([]byte, error) {
	return marshalCompact([]interface{}{"CLOSE", subID})
}

// EventFrame encodes an ["EVENT", event] client frame for publishing.
func EventFrame(ev event.Event) ([]byte, error) {
	return marshalCompact([]interface{}{"EVENT", ev})
}

func marshalCompact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
