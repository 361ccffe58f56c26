package state

import "math/bits"

// TagList decodes a tag bitmask into the ascending 0-based indices of its set bits.
// A zero mask yields an empty, non-nil slice.
func TagList(mask uint32) []int32 {
	out := make([]int32, 0, bits.OnesCount32(mask))
	for mask != 0 {
		idx := bits.TrailingZeros32(mask)
		out = append(out, int32(idx))
		mask &^= 1 << uint(idx)
	}
	return out
}

// TagMask folds a list of per-view tag masks into the mask of occupied tags.
func TagMask(views []uint32) uint32 {
	var mask uint32
	for _, v := range views {
		mask |= v
	}
	return mask
}
