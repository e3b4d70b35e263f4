package position_test

import (
	"testing"

	. "github.com/tetracore/engine/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandBitset(t *testing.T) {
	h := FullHand
	for i := uint8(0); i < NumCardsPerHand; i++ {
		assert.True(t, h.IsSet(i))
	}
	h = h.Unset(2)
	assert.False(t, h.IsSet(2))
	assert.True(t, h.IsSet(0))
	assert.False(t, h.IsEmpty())

	empty := Hand(0)
	assert.True(t, empty.IsEmpty())
}

func TestCellPacking(t *testing.T) {
	c := NewCardCell(Blue, 3)
	require.True(t, c.IsCard())
	assert.False(t, c.IsEmpty())
	assert.False(t, c.IsBlocked())
	assert.Equal(t, Blue, c.Owner())
	assert.Equal(t, CardIdx(3), c.CardIdx())

	flipped := c.Flip()
	assert.Equal(t, Red, flipped.Owner())
	assert.Equal(t, CardIdx(3), flipped.CardIdx())

	// Flip involution: flipping twice returns to the original.
	assert.Equal(t, c, flipped.Flip())

	assert.True(t, EmptyCell.IsEmpty())
	assert.True(t, BlockedCell.IsBlocked())
}

func TestCellSetOps(t *testing.T) {
	var s CellSet
	s = s.Set(0).Set(3).Set(15)
	assert.Equal(t, 3, s.Count())
	assert.True(t, s.Test(3))
	assert.False(t, s.Test(4))

	var got []uint8
	for i := range s.Bits() {
		got = append(got, i)
	}
	assert.Equal(t, []uint8{0, 3, 15}, got)

	notS := s.Not()
	assert.Equal(t, NumCells-3, notS.Count())

	var fromUnset []uint8
	for i := range s.UnsetBits() {
		fromUnset = append(fromUnset, i)
	}
	assert.Equal(t, notS.Count(), len(fromUnset))
}

// TestArrowReversal verifies the law: reverse(reverse(x)) == x, and that neighbor
// adjacency is symmetric under direction reversal.
func TestArrowReversal(t *testing.T) {
	dirs := []ArrowDir{Up, UpRight, Right, DownRight, Down, DownLeft, Left, UpLeft}
	for _, d := range dirs {
		assert.Equal(t, d, d.Reverse().Reverse())
	}

	for cell := uint8(0); cell < NumCells; cell++ {
		for _, n := range Neighbors(cell) {
			found := false
			for _, back := range Neighbors(n.Cell) {
				if back.Cell == cell && back.Dir == n.Dir.Reverse() {
					found = true
					break
				}
			}
			assert.Truef(t, found, "cell %d -> %d via %s has no matching reverse edge", cell, n.Cell, n.Dir)
		}
	}
}

// TestCellsOwnedBy checks the CellsBlue/CellsRed accessor against a hand-built position.
func TestCellsOwnedBy(t *testing.T) {
	var p Position
	p.Board[0] = NewCardCell(Blue, 0)
	p.CellsBlue = p.CellsBlue.Set(0)
	p.Board[1] = NewCardCell(Red, 1)
	p.CellsRed = p.CellsRed.Set(1)

	assert.Equal(t, 1, p.CellsOwnedBy(Blue).Count())
	assert.Equal(t, 1, p.CellsOwnedBy(Red).Count())
	assert.True(t, p.CellsOwnedBy(Blue).Test(0))
	assert.True(t, p.CellsOwnedBy(Red).Test(1))
	assert.False(t, p.IsGameOver())
}
