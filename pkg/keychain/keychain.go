// Package keychain implements the collab client's bounded reservoir of
// server-granted key ranges: a collab client never mints keys itself, it
// draws them from contiguous ranges the server hands out on request, and
// asks for more before it runs dry.
package keychain

import "fmt"

// Range is a contiguous, inclusive span of keys a server has granted to one
// client. The server guarantees disjoint ranges across clients.
type Range struct {
	First uint64
	Last  uint64
}

// remaining reports how many keys in r from next onward have not yet been
// handed out.
func (r Range) remaining(next uint64) uint64 {
	if next > r.Last {
		return 0
	}
	return r.Last - next + 1
}

// LowWatermark is the default remaining-key threshold below which a
// KeyChain reports it should request more keys, matching the "512 keys
// granted, request more well before exhaustion" shape of scenario S6.
const LowWatermark = 64

// KeyChain holds the ranges granted so far and the next unissued key within
// the current range. It never invents key values; every key it yields
// traces back to a server grant.
type KeyChain struct {
	ranges       []Range
	next         uint64
	requestSent  bool
	lowWatermark uint64
}

// New returns an empty KeyChain that has not yet been granted any range.
func New() *KeyChain {
	return &KeyChain{lowWatermark: LowWatermark}
}

// AcceptGrant appends a newly granted range and clears the pending-request
// flag so ShouldRequestKeys can fire again once this range runs low.
func (k *KeyChain) AcceptGrant(first, last uint64) error {
	if last < first {
		return fmt.Errorf("keychain: invalid grant [%d, %d]", first, last)
	}
	if len(k.ranges) == 0 {
		k.next = first
	}
	k.ranges = append(k.ranges, Range{First: first, Last: last})
	k.requestSent = false
	return nil
}

// NextKey draws the next unissued key from the current range, advancing
// into subsequent granted ranges as each is exhausted. ok is false once
// every granted range is exhausted.
func (k *KeyChain) NextKey() (uint64, bool) {
	for len(k.ranges) > 0 {
		r := k.ranges[0]
		if k.next < r.First {
			k.next = r.First
		}
		if k.next > r.Last {
			k.ranges = k.ranges[1:]
			if len(k.ranges) > 0 {
				k.next = k.ranges[0].First
			}
			continue
		}
		key := k.next
		k.next++
		return key, true
	}
	return 0, false
}

// Remaining reports the total number of keys left across all granted
// ranges, without consuming any.
func (k *KeyChain) Remaining() uint64 {
	var total uint64
	for i, r := range k.ranges {
		if i == 0 {
			total += r.remaining(k.next)
			continue
		}
		total += r.Last - r.First + 1
	}
	return total
}

// ShouldRequestKeys reports whether the client is running low and has not
// already sent a request it's waiting on a grant for.
func (k *KeyChain) ShouldRequestKeys() bool {
	return !k.requestSent && k.Remaining() < k.lowWatermark
}

// MarkRequestSent records that a key_request message has gone out, so
// ShouldRequestKeys doesn't fire again until a grant arrives.
func (k *KeyChain) MarkRequestSent() {
	k.requestSent = true
}
