// Package bitmap provides the bit-level primitive used by the block and
// inode allocators: get/put a single bit within a byte region, plus a
// diagnostic pretty-printer. Adapted from the teacher's
// drivers/common/blockmanager.go, which builds its block allocation bitmap
// on top of github.com/boljen/go-bitmap; here the region is not a private
// cache but the literal on-disk bytes (block 0 of the image), so the
// conventional LSB-first bit order that library documents (bit i lives in
// byte i/8, bit i%8) is load-bearing: it IS the wire format.
package bitmap

import (
	"strings"

	gobitmap "github.com/boljen/go-bitmap"
)

// Bitmap is a view over a byte region, addressed one bit at a time. No
// bounds checking is performed; callers constrain i against the region's
// bit capacity (256 for the block bitmap, 248 for the inode bitmap).
type Bitmap struct {
	region gobitmap.Bitmap
}

// Over wraps an existing byte region (e.g. a slice into the mapped image)
// as a Bitmap. Mutations through Get/Put are visible to anyone else holding
// a view of the same bytes, since region is not copied.
func Over(region []byte) Bitmap {
	return Bitmap{region: gobitmap.Bitmap(region)}
}

// Get returns 1 if bit i is set, 0 otherwise.
func (b Bitmap) Get(i int) int {
	if b.region.Get(i) {
		return 1
	}
	return 0
}

// Put sets bit i to 1 if v is nonzero, 0 otherwise.
func (b Bitmap) Put(i int, v int) {
	b.region.Set(i, v != 0)
}

// Print renders the first length bits as '0'/'1' characters, with a space
// every 8 bits and a newline every 64 bits. Used only for diagnostics.
func (b Bitmap) Print(length int) string {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		if b.Get(i) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}

		switch {
		case (i+1)%64 == 0:
			sb.WriteByte('\n')
		case (i+1)%8 == 0:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
