// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package engine

// HeldStep is the coarse increment used while a step key is held
const HeldStep = 10

// NextValue returns the value a step key moves cur to. dir is +1 or -1.
//
// A single press moves one unit. While held the value first snaps to the next
// multiple of HeldStep in the direction of travel, then moves a full HeldStep
// at a time, and jumps straight to the bound once it is within HeldStep of
// it. The result is always within [lo, hi].
func NextValue(cur, lo, hi, dir int, held bool) int {
	var next int
	switch {
	case !held:
		next = cur + dir

	case dir > 0:
		switch {
		case hi-cur <= HeldStep:
			next = hi
		case cur%HeldStep == 0:
			next = cur + HeldStep
		default:
			next = cur + HeldStep - cur%HeldStep
		}

	default:
		switch {
		case cur-lo <= HeldStep:
			next = lo
		case cur%HeldStep == 0:
			next = cur - HeldStep
		default:
			next = cur - cur%HeldStep
		}
	}

	if next < lo {
		return lo
	}
	if next > hi {
		return hi
	}
	return next
}
