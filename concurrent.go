package cring

import "sync/atomic"

// Concurrent is a Ring wrapper safe for exactly one producer goroutine and
// one consumer goroutine operating concurrently on the same backing
// storage. It is not safe for multiple producers or multiple consumers.
//
// Concurrent implements the same cursor algorithm as Ring, but publishes
// the write and wrap cursors only after the payload bytes they describe
// have been copied, and publishes the read cursor only after the consumer
// is done with the bytes it names. A consumer that observes a new write
// value is therefore guaranteed to also observe the bytes it describes and
// the wrap snapshot that goes with it.
//
// This is the acquire/release wrapper the bare Ring deliberately leaves to
// callers: Ring itself stays lock-free and ordering-free so that callers
// who want a different discipline (or none, for single-threaded use) are
// not paying for one they don't need.
type Concurrent struct {
	data []byte
	size uint32
	mask uint32

	read  atomic.Uint32
	write atomic.Uint32
	wrap  atomic.Uint32
}

// NewConcurrent creates a Concurrent ring backed by data, whose length must
// be a power of two greater than zero. Panics otherwise, for the same
// reason New does: the size is fixed at construction and is a caller bug
// to get wrong.
func NewConcurrent(data []byte) *Concurrent {
	size := uint32(len(data))
	if size == 0 || size&(size-1) != 0 {
		panic(invariantError("size must be a power of two greater than zero"))
	}
	return &Concurrent{
		data: data,
		size: size,
		mask: size - 1,
	}
}

func (c *Concurrent) isSplit(read, write uint32) bool {
	return cyclicDistance(read, write) > c.size
}

// Produce copies src into the ring as one contiguous record and reports
// whether it fit, exactly like Ring.Produce. Must only be called from the
// producer goroutine.
func (c *Concurrent) Produce(src []byte) bool {
	insize := uint32(len(src))
	if insize == 0 {
		return true
	}

	read := c.read.Load()
	write := c.write.Load()
	wrap := c.wrap.Load()
	mw := write & c.mask

	if c.isSplit(read, write) {
		var avail uint32
		if wrap == read {
			if mw == 0 {
				avail = 0
			} else {
				avail = c.size - mw
			}
		} else {
			avail = (read - write) & c.mask
		}
		if avail < insize {
			return false
		}
		copy(c.data[mw:mw+insize], src)
		c.write.Store(write + insize)
		return true
	}

	empty := read == write

	if empty && mw != 0 {
		if c.size < insize {
			return false
		}
		c.tailSkip(src, insize, mw, write)
		return true
	}

	if !(mw == 0 && !empty) && c.size-mw >= insize {
		copy(c.data[mw:mw+insize], src)
		c.write.Store(write + insize)
		return true
	}

	if read&c.mask >= insize {
		c.tailSkip(src, insize, mw, write)
		return true
	}
	return false
}

// tailSkip copies src to offset zero and publishes wrap before write, so a
// consumer that observes the new write cursor also observes a consistent
// wrap snapshot and the bytes themselves.
func (c *Concurrent) tailSkip(src []byte, insize, mw, write uint32) {
	copy(c.data[:insize], src)
	c.wrap.Store(write)
	c.write.Store(write + c.size + (c.size - mw) + insize)
}

// Peek returns the contiguous readable run starting at the current read
// cursor, exactly like Ring.Peek. Must only be called from the consumer
// goroutine.
func (c *Concurrent) Peek() []byte {
	read := c.read.Load()
	write := c.write.Load()
	wrap := c.wrap.Load()

	n := c.consumeableSizeContinuous(read, write, wrap)
	if read == wrap && c.isSplit(read, write) {
		return c.data[:n]
	}
	start := read & c.mask
	return c.data[start : start+n]
}

func (c *Concurrent) frontFillSize(write uint32) uint32 {
	if mw := write & c.mask; mw != 0 {
		return mw
	}
	return c.size
}

func (c *Concurrent) consumeableSizeContinuous(read, write, wrap uint32) uint32 {
	switch {
	case !c.isSplit(read, write):
		return write - read
	case read == wrap:
		return c.frontFillSize(write)
	default:
		return (wrap - read) & c.mask
	}
}

// ConsumeableSizeContinuous returns the number of bytes readable via a
// single Peek call.
func (c *Concurrent) ConsumeableSizeContinuous() uint32 {
	return c.consumeableSizeContinuous(c.read.Load(), c.write.Load(), c.wrap.Load())
}

// ConsumeableSize returns the total number of readable bytes, including any
// bytes past a tail-skip that Peek alone would not expose.
func (c *Concurrent) ConsumeableSize() uint32 {
	read, write, wrap := c.read.Load(), c.write.Load(), c.wrap.Load()
	switch {
	case !c.isSplit(read, write):
		return write - read
	case read == wrap:
		return c.frontFillSize(write)
	default:
		return ((wrap - read) & c.mask) + (write & c.mask)
	}
}

// Consume releases n bytes returned by the most recent Peek. The caller
// must be finished reading that slice before calling Consume: the read
// cursor it publishes is what lets the producer reuse that space.
//
// Panics if n exceeds ConsumeableSizeContinuous(), same as Ring.Consume.
// Must only be called from the consumer goroutine.
func (c *Concurrent) Consume(n uint32) {
	read := c.read.Load()
	write := c.write.Load()
	wrap := c.wrap.Load()

	if n > c.consumeableSizeContinuous(read, write, wrap) {
		panic(invariantError("consume exceeds contiguous readable size"))
	}
	if n == 0 {
		return
	}
	if read == wrap && c.isSplit(read, write) {
		c.read.Store(read + c.size + (c.size - (read & c.mask)) + n)
		return
	}
	c.read.Store(read + n)
}

// IsEmpty reports whether the ring currently holds no unconsumed bytes.
func (c *Concurrent) IsEmpty() bool {
	return c.read.Load() == c.write.Load()
}

// IsFull reports whether the ring currently holds a full buffer's worth of
// unconsumed bytes.
func (c *Concurrent) IsFull() bool {
	return c.ConsumeableSize() == c.size
}

// Size returns the ring's fixed capacity.
func (c *Concurrent) Size() uint32 {
	return c.size
}

// Reset returns the ring to the empty state. Like Ring.Reset, this is only
// safe when neither the producer nor the consumer is concurrently active.
func (c *Concurrent) Reset() {
	c.read.Store(0)
	c.write.Store(0)
	c.wrap.Store(0)
}
