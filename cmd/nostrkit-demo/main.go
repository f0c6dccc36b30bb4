// Command nostrkit-demo wires the library end to end: it connects to a
// relay, publishes a text note (proof-of-work mined when -pow is set),
// and prints anything matching a subscription for a few seconds.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skip2/go-qrcode"

	"nostrkit/client"
	"nostrkit/codec"
	"nostrkit/event"
	"nostrkit/filter"
	"nostrkit/identity"
	"nostrkit/internal/xlog"
)

var (
	nsecHex  string
	relayArg string
	powBits  uint
)

func main() {
	flag.StringVar(&nsecHex, "nsec", "", "identity secret key (hex); generated if empty")
	flag.StringVar(&relayArg, "relay", "wss://relay.damus.io", "relay URL to connect to")
	flag.UintVar(&powBits, "pow", 0, "proof-of-work difficulty for the published note")
	flag.Parse()

	xlog.Init()

	if nsecHex == "" {
		nsecHex = os.Getenv("NOSTRKIT_NSEC")
	}

	id, err := resolveIdentity(nsecHex)
	if err != nil {
		log.Fatalf("resolve identity: %v", err)
	}

	npub, err := codec.EncodeBech32("npub", mustHex(id.PublicKeyHex()))
	if err != nil {
		log.Fatalf("encode npub: %v", err)
	}
	slog.Info("identity ready", "npub", npub, "pubkey", id.PublicKeyHex())
	printNpubQR(npub)

	s := client.New(id, nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.AddRelay(ctx, relayArg); err != nil {
		log.Fatalf("add relay %s: %v", relayArg, err)
	}
	slog.Info("connected", "relay", relayArg)

	note, err := publishNote(id, s)
	if err != nil {
		log.Fatalf("publish note: %v", err)
	}
	slog.Info("published", "id", note.ID, "pow_bits", powBits)

	limit := 5
	subID, ch, err := s.Subscribe(filter.ReqFilter{Kinds: []uint16{1}, Limit: &limit})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe(subID)

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !msg.EOSE {
				slog.Info("received note", "id", msg.Event.ID, "content", msg.Event.Content)
			}
		case <-timeout:
			return
		case <-stop.Done():
			return
		}
	}
}

func resolveIdentity(nsecHex string) (*identity.Identity, error) {
	if nsecHex == "" {
		return identity.GenerateRandom()
	}
	return identity.FromHex(nsecHex)
}

func publishNote(id *identity.Identity, s *client.Session) (event.Event, error) {
	content := "hello from nostrkit"
	if powBits == 0 {
		return s.PublishTextNote(content, nil)
	}

	p := event.NewPrepare(id, uint64(time.Now().Unix()), 1, nil, content)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ev, err := event.MineWithContext(ctx, id, p, uint16(powBits))
	if err != nil {
		return event.Event{}, err
	}
	return ev, s.PublishEvent(ev)
}

func mustHex(s string) []byte {
	b, err := codec.DecodeHex(s, 32)
	if err != nil {
		panic(err)
	}
	return b
}

func printNpubQR(npub string) {
	qr, err := qrcode.New(npub, qrcode.Medium)
	if err != nil {
		slog.Warn("qrcode generation failed", "error", err)
		return
	}
	os.Stdout.WriteString(qr.ToString(false))
}
