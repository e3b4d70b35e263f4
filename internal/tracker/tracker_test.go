package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/tracker"
)

func blankHand() [position.NumCardsPerHand]position.Card {
	var h [position.NumCardsPerHand]position.Card
	return h
}

func newConstants(t *testing.T, bs position.BattleSystem, blue, red [position.NumCardsPerHand]position.Card, blocked ...uint8) *constants.Constants {
	t.Helper()
	con, err := constants.New(constants.Setup{
		BattleSystem:   bs,
		HandBlue:       blue,
		HandRed:        red,
		StartingPlayer: position.Blue,
		BlockedCells:   blocked,
	}, constants.Config{Player: position.Blue, MaxDepth: 1})
	require.NoError(t, err)
	return con
}

func TestNewStartsAwaitingPlace(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red, 3)

	tr := tracker.New(con)
	pos := tr.Position()
	assert.Equal(t, position.AwaitingPlace, pos.Status)
	assert.Equal(t, position.Blue, pos.Turn)
	assert.Equal(t, position.FullHand, pos.HandBlue)
	assert.True(t, pos.Board[3].IsBlocked())
}

func TestPlaceCardNoInteractionAdvancesTurn(t *testing.T) {
	blue := blankHand()
	blue[0] = position.Card{Attack: 5, Type: position.Physical, Arrows: position.Arrows(position.Right)}
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)

	tr := tracker.New(con)
	tr.PlaceCard(position.Blue, 0, 0)
	pos := tr.Position()
	assert.Equal(t, position.AwaitingPlace, pos.Status)
	assert.Equal(t, position.Red, pos.Turn)
	assert.True(t, pos.CellsBlue.Test(0))
	assert.False(t, pos.HandBlue.IsSet(0))
}

func TestPickBattlePanicsOnWrongStatus(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)
	tr := tracker.New(con)

	assert.Panics(t, func() {
		tr.PickBattle(position.Blue, 0)
	})
}

func TestPlaceCardPanicsOnOccupiedCell(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)
	tr := tracker.New(con)

	tr.PlaceCard(position.Blue, 0, 5)
	assert.Panics(t, func() {
		tr.PlaceCard(position.Red, 1, 5)
	})
}

func TestPlaceCardPanicsOnCardNotInHand(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)
	tr := tracker.New(con)

	tr.PlaceCard(position.Blue, 0, 0) // blue hand index 0.
	tr.PlaceCard(position.Red, 0, 1)  // red hand index 0.
	assert.Panics(t, func() {
		tr.PlaceCard(position.Blue, 0, 2) // blue's index 0 is already gone.
	})
}

func TestPlaceCardPanicsOnWrongPlayer(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)
	tr := tracker.New(con) // Blue to move first.

	assert.Panics(t, func() {
		tr.PlaceCard(position.Red, 0, 0)
	})
}

// Drives a full place -> pick -> resolve sequence purely through the Tracker's public API: three
// throwaway blue placements interleave with red's three defenders so each lands without
// interacting, then blue's multi-arrow card triggers AwaitingPickBattle against all three, and
// the picked battle (a tie under the Deterministic system, since both sides are stat-less)
// resolves as a defender win.
func TestPickBattleThenResolveBattle(t *testing.T) {
	blue := blankHand()
	blue[3] = position.Card{
		Arrows: position.Arrows(position.Up) | position.Arrows(position.Right) | position.Arrows(position.Down),
	}
	red := blankHand()
	red[0] = position.Card{Arrows: position.Arrows(position.Down)} // at cell 1, points back to cell 5.
	red[1] = position.Card{Arrows: position.Arrows(position.Left)} // at cell 6, points back to cell 5.
	red[2] = position.Card{Arrows: position.Arrows(position.Up)}   // at cell 9, points back to cell 5.
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)

	tr := tracker.New(con)
	tr.PlaceCard(position.Blue, 0, 10) // blue throwaway.
	tr.PlaceCard(position.Red, 0, 1)   // red defender 0.
	tr.PlaceCard(position.Blue, 1, 11) // blue throwaway.
	tr.PlaceCard(position.Red, 1, 6)   // red defender 1.
	tr.PlaceCard(position.Blue, 2, 12) // blue throwaway.
	tr.PlaceCard(position.Red, 2, 9)   // red defender 2.
	tr.PlaceCard(position.Blue, 3, 5)  // blue's triple-arrowed card: reaches all three defenders at once.

	pending := tr.Position()
	require.Equal(t, position.AwaitingPickBattle, pending.Status)
	require.Equal(t, uint8(5), pending.PickAttackerCell)
	require.Equal(t, 3, pending.PickChoices.Count())

	tr.PickBattle(position.Blue, 1)
	resolving := tr.Position()
	require.Equal(t, position.AwaitingResolveBattle, resolving.Status)
	assert.Equal(t, uint8(5), resolving.BattleAttackerCell)
	assert.Equal(t, uint8(1), resolving.BattleDefenderCell)

	tr.ResolveBattle(position.Blue, nil, nil)
	after := tr.Position()
	assert.Equal(t, position.AwaitingPlace, after.Status)
	assert.Equal(t, position.Red, after.Turn)
	assert.True(t, after.CellsRed.Test(5), "a tie under Deterministic resolves as a defender win: the attacker flips")
	assert.True(t, after.CellsRed.Test(1))
}

func TestResolveBattlePanicsOutsideAwaitingResolveBattle(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)
	tr := tracker.New(con)

	assert.Panics(t, func() {
		tr.ResolveBattle(position.Blue, nil, nil)
	})
}

func TestFullGameReachesGameOver(t *testing.T) {
	blue := blankHand()
	red := blankHand()
	con := newConstants(t, position.BattleSystem{Kind: position.Deterministic}, blue, red)

	tr := tracker.New(con)
	for move := uint8(0); move < 2*position.NumCardsPerHand; move++ {
		tr.PlaceCard(tr.Position().Turn, move/2, move) // blue and red alternate, each exhausting hand indices 0..4 in order.
	}
	assert.Equal(t, position.GameOver, tr.Position().Status)
}
