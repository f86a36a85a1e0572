package cring

import (
	"bytes"
	"testing"
)

// FuzzProduce drives arbitrary interleavings of Produce/Peek/Consume against
// a reference FIFO model and checks contiguity, all-or-nothing writes, and
// the capacity bound on every interleaving the fuzzer finds. Seeded with a
// handful of representative op/byte sequences before handing control to
// f.Fuzz.
func FuzzProduce(f *testing.F) {
	f.Add(uint8(8), []byte("01234567012345670123"))
	f.Add(uint8(8), []byte("0123456789abcdef"))
	f.Add(uint8(16), []byte("abcdefghijklmnopqrstuvwxyz0123456789"))
	f.Add(uint8(4), []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	f.Add(uint8(32), bytes.Repeat([]byte{0xaa}, 100))

	f.Fuzz(func(t *testing.T, rawSize uint8, ops []byte) {
		size := nextPow2(uint32(rawSize)%64 + 1)
		r := New(make([]byte, size))

		var want []byte
		for len(ops) > 0 {
			op := ops[0] & 1
			n := int(ops[0]>>1) % 6
			ops = ops[1:]

			if len(ops) < n {
				n = len(ops)
			}
			chunk := ops[:n]
			ops = ops[n:]

			if op == 0 {
				readBefore, writeBefore, wrapBefore := r.read, r.write, r.wrap
				if r.Produce(chunk) {
					want = append(want, chunk...)
				} else if r.read != readBefore || r.write != writeBefore || r.wrap != wrapBefore {
					t.Fatalf("Produce returned false but mutated cursors")
				}
			} else if len(want) > 0 {
				got := r.Peek()
				k := uint32(len(got))
				if k == 0 {
					t.Fatalf("non-empty ring produced a zero-length Peek")
				}
				if k > uint32(len(want)) {
					t.Fatalf("Peek returned %d bytes but only %d are outstanding", k, len(want))
				}
				if !bytes.Equal(want[:k], got) {
					t.Fatalf("contiguity violated: want %x got %x", want[:k], got)
				}
				r.Consume(k)
				want = want[k:]
			}

			if cs := r.ConsumeableSize(); cs > size {
				t.Fatalf("capacity bound violated: consumeable size %d > buffer size %d", cs, size)
			}
		}
	})
}

func nextPow2(n uint32) uint32 {
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}
