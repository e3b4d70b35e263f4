package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFlipInvolution checks that flipping a cell twice returns it to its original owner and
// that CellsBlue/CellsRed stay consistent with Board.
func TestFlipInvolution(t *testing.T) {
	var p Position
	p.Board[0] = NewCardCell(Blue, 2)
	p.CellsBlue = p.CellsBlue.Set(0)

	p.FlipCell(0)
	assert.Equal(t, Red, p.Board[0].Owner())
	assert.True(t, p.CellsRed.Test(0))
	assert.False(t, p.CellsBlue.Test(0))

	p.FlipCell(0)
	assert.Equal(t, Blue, p.Board[0].Owner())
	assert.True(t, p.CellsBlue.Test(0))
	assert.False(t, p.CellsRed.Test(0))
	assert.Equal(t, CardIdx(2), p.Board[0].CardIdx())
}

func TestEvaluateAndGameOver(t *testing.T) {
	var p Position
	p.Turn = Blue
	p.HandBlue = FullHand
	p.HandRed = FullHand
	assert.False(t, p.IsGameOver())

	p.Board[0] = NewCardCell(Blue, 0)
	p.CellsBlue = p.CellsBlue.Set(0)
	p.Board[1] = NewCardCell(Red, 1)
	p.CellsRed = p.CellsRed.Set(1)
	p.Board[2] = NewCardCell(Blue, 2)
	p.CellsBlue = p.CellsBlue.Set(2)

	assert.Equal(t, float32(1), p.Evaluate())

	p.HandBlue = 0
	p.HandRed = 0
	assert.True(t, p.IsGameOver())
}
