package client

import (
	"encoding/json"
	"time"

	"nostrkit/event"
)

func now() uint64 {
	return uint64(time.Now().Unix())
}

// SetMetadata publishes a kind-0 replaceable event carrying the
// caller's profile document.
func (s *Session) SetMetadata(metadata map[string]string) (event.Event, error) {
	content, err := json.Marshal(metadata)
	if err != nil {
		return event.Event{}, err
	}
	p := event.NewPrepare(s.id, now(), 0, nil, string(content))
	return s.PublishReplaceableEvent(p)
}

// PublishTextNote publishes a kind-1 note with the given tags.
func (s *Session) PublishTextNote(content string, tags [][]string) (event.Event, error) {
	p := event.NewPrepare(s.id, now(), 1, tags, content)
	ev, err := event.ToEvent(s.id, p, 0)
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}

// AddRecommendedRelay publishes a kind-2 recommend-relay event.
func (s *Session) AddRecommendedRelay(relayURL string) (event.Event, error) {
	p := event.NewPrepare(s.id, now(), 2, nil, relayURL)
	ev, err := event.ToEvent(s.id, p, 0)
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}

// SetContactList publishes a kind-3 replaceable contact list; petnames
// maps followed pubkey hex to an optional display name (may be empty).
func (s *Session) SetContactList(petnames map[string]string, content string) (event.Event, error) {
	tags := make([][]string, 0, len(petnames))
	for pubkey, name := range petnames {
		tags = append(tags, []string{"p", pubkey, "", name})
	}
	p := event.NewPrepare(s.id, now(), 3, tags, content)
	return s.PublishReplaceableEvent(p)
}

// ReactTo publishes a kind-7 reaction to target with the given content
// (an emoji, or "+"/"-" for like/dislike).
func (s *Session) ReactTo(target event.Event, content string) (event.Event, error) {
	tags := [][]string{{"e", target.ID}, {"p", target.PubKey}}
	p := event.NewPrepare(s.id, now(), 7, tags, content)
	ev, err := event.ToEvent(s.id, p, 0)
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}

// Like reacts to target with "+", the NIP-25 convention for a like.
func (s *Session) Like(target event.Event) (event.Event, error) {
	return s.ReactTo(target, "+")
}

// Dislike reacts to target with "-", the NIP-25 convention for a dislike.
func (s *Session) Dislike(target event.Event) (event.Event, error) {
	return s.ReactTo(target, "-")
}

// DeleteEvent publishes a kind-5 deletion request for the given event
// ids, with no reason given.
func (s *Session) DeleteEvent(eventIDs []string) (event.Event, error) {
	return s.DeleteEventWithReason(eventIDs, "")
}

// DeleteEventWithReason publishes a kind-5 deletion request for the
// given event ids, recording reason as the event content.
func (s *Session) DeleteEventWithReason(eventIDs []string, reason string) (event.Event, error) {
	tags := make([][]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		tags = append(tags, []string{"e", id})
	}
	p := event.NewPrepare(s.id, now(), 5, tags, reason)
	ev, err := event.ToEvent(s.id, p, 0)
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}
