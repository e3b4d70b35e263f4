package search

import "github.com/chewxy/math32"

// squashScale controls how quickly Squash saturates: at value == squashScale the result is
// tanh(1) ≈ 0.76.
const squashScale = 6

// Squash maps a raw cell-count-difference value (range -10..10, ten cards in play) onto (-1, 1) for
// display purposes, e.g. a CLI's confidence readout. The search itself always compares raw
// values; Squash is never used inside alpha-beta, only by callers presenting a score to a user.
func Squash(value float32) float32 {
	return math32.Tanh(value / squashScale)
}
