package sensor

import "sync/atomic"

// Buffer holds one slot per channel, overwritten in place by a single producer.
//
// Every slot is a single machine word, so a reader sees either the previous or the next
// conversion for that channel, never a partial value. Slots of one Snapshot may come from
// adjacent scans.
type Buffer struct {
	slots [Channels]atomic.Uint32
	scans atomic.Uint32
}

// Read returns the latest value for channel, or 0 for a channel outside the array.
func (b *Buffer) Read(channel int) uint16 {
	if channel < 0 || channel >= Channels {
		return 0
	}
	return uint16(b.slots[channel].Load())
}

// Store overwrites a single channel. Only the producer calls it.
func (b *Buffer) Store(channel int, value uint16) {
	if channel < 0 || channel >= Channels {
		return
	}
	b.slots[channel].Store(uint32(value))
}

// StoreScan writes a completed scan in channel order and counts it.
func (b *Buffer) StoreScan(values [Channels]uint16) {
	for i, v := range values {
		b.slots[i].Store(uint32(v))
	}
	b.scans.Add(1)
}

// Scans returns how many complete scans have been stored. Wraps at 32 bits.
func (b *Buffer) Scans() uint32 {
	return b.scans.Load()
}

// Snapshot copies all channels in channel order.
func (b *Buffer) Snapshot() [Channels]uint16 {
	var out [Channels]uint16
	for i := range out {
		out[i] = uint16(b.slots[i].Load())
	}
	return out
}
