// Package client implements the session manager: it owns a set of
// relay connections and the subscriptions multiplexed across them,
// and exposes publish/subscribe operations plus high-level helpers for
// common event kinds.
package client

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"nostrkit/event"
	"nostrkit/filter"
	"nostrkit/identity"
	"nostrkit/internal/cache"
	"nostrkit/internal/xlog"
	"nostrkit/nostrerr"
	"nostrkit/relay"
)

// Incoming is a decoded message delivered to a subscriber: either an
// Event (EOSE == false) or an end-of-stored-events marker for SubID
// (EOSE == true, Event is the zero value).
type Incoming struct {
	SubID string
	Event event.Event
	EOSE  bool
}

type subscription struct {
	id      string
	filters []filter.ReqFilter
	ch      chan Incoming
}

// Session manages connections to many relays concurrently and the
// subscriptions active across them.
type Session struct {
	id *identity.Identity

	mu      sync.Mutex
	relays  map[string]*relay.Connection
	subs    map[string]*subscription
	seen    cache.CacheBackend
	closing chan struct{}
}

// New creates a session that signs outgoing events with id. dedup is
// used to drop inbound events already delivered to a subscription in
// this process lifetime; if nil, an in-memory cache is used.
func New(id *identity.Identity, dedup cache.CacheBackend) *Session {
	if dedup == nil {
		dedup = cache.NewMemoryCache(10000, 5*time.Minute)
	}
	return &Session{
		id:      id,
		relays:  make(map[string]*relay.Connection),
		subs:    make(map[string]*subscription),
		seen:    dedup,
		closing: make(chan struct{}),
	}
}

// AddRelay connects to url and begins routing its messages to active
// subscriptions. Calling it again for an already-connected url is a
// no-op.
func (s *Session) AddRelay(ctx context.Context, url string) error {
	s.mu.Lock()
	if existing, ok := s.relays[url]; ok && !existing.IsClosed() {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	conn, err := relay.Dial(ctx, url)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.relays[url] = conn
	s.mu.Unlock()

	go s.routeFrom(url, conn)
	return nil
}

// RemoveRelay closes the connection to url and stops routing its
// messages. Other relays are unaffected.
func (s *Session) RemoveRelay(url string) {
	s.mu.Lock()
	conn, ok := s.relays[url]
	if ok {
		delete(s.relays, url)
	}
	s.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// RelayURLs returns the URLs of every relay currently tracked,
// connected or not.
func (s *Session) RelayURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.relays))
	for u := range s.relays {
		urls = append(urls, u)
	}
	return urls
}

func (s *Session) routeFrom(url string, conn *relay.Connection) {
	for msg := range conn.Incoming {
		switch msg.Type {
		case "EVENT":
			if len(msg.Raw) < 3 {
				continue
			}
			subID, _ := msg.Raw[1].(string)
			evRaw, err := json.Marshal(msg.Raw[2])
			if err != nil {
				continue
			}
			var ev event.Event
			if err := json.Unmarshal(evRaw, &ev); err != nil {
				continue
			}
			ev.RelaysSeen = []string{url}

			s.mu.Lock()
			sub, ok := s.subs[subID]
			s.mu.Unlock()
			if !ok {
				continue
			}
			if s.seen != nil {
				dedupKey := subID + ":" + ev.ID
				if _, found, _ := s.seen.Get(context.Background(), dedupKey); found {
					continue
				}
				s.seen.Set(context.Background(), dedupKey, []byte{1}, time.Hour)
			}
			select {
			case sub.ch <- Incoming{SubID: subID, Event: ev}:
			default:
			}

		case "EOSE":
			if len(msg.Raw) < 2 {
				continue
			}
			subID, _ := msg.Raw[1].(string)
			s.mu.Lock()
			sub, ok := s.subs[subID]
			s.mu.Unlock()
			if ok {
				select {
				case sub.ch <- Incoming{SubID: subID, EOSE: true}:
				default:
				}
			}
		}
	}
}

// SubscribeWithID opens a subscription with a caller-chosen id across every
// currently-connected relay and returns the channel inbound events and
// EOSE markers arrive on. Unsubscribe must be called to release it.
func (s *Session) SubscribeWithID(subID string, filters ...filter.ReqFilter) (<-chan Incoming, error) {
	frame, err := filter.ReqFrame(subID, filters...)
	if err != nil {
		return nil, err
	}

	sub := &subscription{id: subID, filters: filters, ch: make(chan Incoming, 256)}

	s.mu.Lock()
	s.subs[subID] = sub
	conns := make([]*relay.Connection, 0, len(s.relays))
	for _, c := range s.relays {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	logger := xlog.FromContext(xlog.WithTraceID(context.Background(), xlog.NewTraceID()))
	for _, conn := range conns {
		if err := conn.SendFrame(frame); err != nil {
			logger.Debug("subscribe: relay send failed", "sub_id", subID, "relay", conn.URL, "error", err)
			continue
		}
		logger.Debug("subscribe: sent REQ", "sub_id", subID, "relay", conn.URL)
	}
	return sub.ch, nil
}

// Subscribe is SubscribeWithID with a random 16-byte hex id; callers
// needing a caller-chosen id should use SubscribeWithID directly.
func (s *Session) Subscribe(filters ...filter.ReqFilter) (string, <-chan Incoming, error) {
	subID, err := newSubID()
	if err != nil {
		return "", nil, err
	}
	ch, err := s.SubscribeWithID(subID, filters...)
	return subID, ch, err
}

func newSubID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: %v", nostrerr.CryptoError, err)
	}
	return hex.EncodeToString(b), nil
}

// Unsubscribe sends CLOSE to every relay and releases the subscription.
func (s *Session) Unsubscribe(subID string) {
	s.mu.Lock()
	sub, ok := s.subs[subID]
	if ok {
		delete(s.subs, subID)
	}
	conns := make([]*relay.Connection, 0, len(s.relays))
	for _, c := range s.relays {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	frame, err := filter.CloseFrame(subID)
	if err == nil {
		for _, conn := range conns {
			conn.SendFrame(frame)
		}
	}
	close(sub.ch)
}

// GetEventsOf runs filters as a one-shot subscription, collecting
// events until every connected relay reports EOSE or ctx is done, then
// closes the subscription and returns what arrived.
func (s *Session) GetEventsOf(ctx context.Context, filters ...filter.ReqFilter) ([]event.Event, error) {
	s.mu.Lock()
	relayCount := len(s.relays)
	s.mu.Unlock()
	if relayCount == 0 {
		return nil, fmt.Errorf("%w: no relays connected", nostrerr.ConnectionClosed)
	}

	subID := fmt.Sprintf("oneshot-%d", time.Now().UnixNano())
	ch, err := s.SubscribeWithID(subID, filters...)
	if err != nil {
		return nil, err
	}
	defer s.Unsubscribe(subID)

	var events []event.Event
	eoseCount := 0
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return events, nil
			}
			if msg.EOSE {
				eoseCount++
				if eoseCount >= relayCount {
					return events, nil
				}
				continue
			}
			events = append(events, msg.Event)
		case <-ctx.Done():
			return events, ctx.Err()
		}
	}
}

// PublishEvent sends ev to every connected relay, returning
// AllRelaysFailed if none accept the write.
func (s *Session) PublishEvent(ev event.Event) error {
	frame, err := filter.EventFrame(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conns := make(map[string]*relay.Connection, len(s.relays))
	for url, c := range s.relays {
		conns[url] = c
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return fmt.Errorf("%w: no relays connected", nostrerr.ConnectionClosed)
	}

	logger := xlog.FromContext(xlog.WithTraceID(context.Background(), xlog.NewTraceID()))
	failures := map[string]error{}
	for url, conn := range conns {
		if err := conn.SendFrame(frame); err != nil {
			failures[url] = err
			logger.Debug("publish: relay send failed", "event_id", ev.ID, "relay", url, "error", err)
			continue
		}
		logger.Debug("publish: sent EVENT", "event_id", ev.ID, "relay", url)
	}
	if len(failures) == len(conns) {
		return &nostrerr.AllRelaysFailed{PerRelay: failures}
	}
	return nil
}

// BroadcastEvent is an alias for PublishEvent: the name some callers
// expect when emphasizing the multi-relay fan-out.
func (s *Session) BroadcastEvent(ev event.Event) error {
	return s.PublishEvent(ev)
}

// PublishReplaceableEvent signs and publishes ev whose kind must fall
// in the NIP-01 replaceable ranges (10000-19999, or 0/3); relays keep
// only the newest event per (pubkey, kind).
func (s *Session) PublishReplaceableEvent(p event.Prepare) (event.Event, error) {
	if !isReplaceableKind(p.Kind) {
		return event.Event{}, fmt.Errorf("%w: kind %d is not replaceable", nostrerr.KindOutOfRange, p.Kind)
	}
	ev, err := event.ToEvent(s.id, p, 0)
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}

// PublishEphemeralEvent signs and publishes ev whose kind must fall in
// the NIP-01 ephemeral range (20000-29999); relays must not store it.
func (s *Session) PublishEphemeralEvent(p event.Prepare) (event.Event, error) {
	if p.Kind < 20000 || p.Kind >= 30000 {
		return event.Event{}, fmt.Errorf("%w: kind %d is not ephemeral", nostrerr.KindOutOfRange, p.Kind)
	}
	ev, err := event.ToEvent(s.id, p, 0)
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}

func isReplaceableKind(kind uint16) bool {
	if kind == 0 || kind == 3 {
		return true
	}
	return kind >= 10000 && kind < 20000
}

// Close disconnects every relay and releases every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	conns := make([]*relay.Connection, 0, len(s.relays))
	for _, c := range s.relays {
		conns = append(conns, c)
	}
	s.relays = make(map[string]*relay.Connection)
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
	for _, conn := range conns {
		conn.Close()
	}
	close(s.closing)
}
