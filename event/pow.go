package event

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"nostrkit/identity"
	"nostrkit/nostrerr"
)

// mine appends a nonce tag to p and repeatedly resigns, incrementing the
// nonce and refreshing created_at each attempt, until the resulting id
// has at least targetBits leading zero bits. ctx, if non-nil, can abort
// the loop early.
func mine(id *identity.Identity, p Prepare, targetBits uint16, ctx context.Context) (Event, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tags := make([][]string, len(p.Tags), len(p.Tags)+1)
	copy(tags, p.Tags)
	nonceTagIdx := len(tags)
	tags = append(tags, []string{"nonce", "0", strconv.Itoa(int(targetBits))})

	attempt := p
	attempt.Tags = tags

	var nonce uint64
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		default:
		}

		attempt.Tags[nonceTagIdx][1] = strconv.FormatUint(nonce, 10)
		attempt.CreatedAt = uint64(time.Now().Unix())

		idBytes, err := computeID(attempt)
		if err != nil {
			return Event{}, err
		}
		if LeadingZeroBits(idBytes[:]) >= int(targetBits) {
			return signOnce(id, attempt)
		}
		nonce++
	}
}

// MineWithContext is the exported entry point for cancellable PoW
// mining; ToEvent runs the same mining loop with a background context.
func MineWithContext(ctx context.Context, id *identity.Identity, p Prepare, targetBits uint16) (Event, error) {
	if targetBits == 0 {
		return Event{}, fmt.Errorf("%w: pow difficulty must be > 0", nostrerr.MalformedField)
	}
	return mine(id, p, targetBits, ctx)
}
