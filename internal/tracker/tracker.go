// Package tracker drives one game's position.Position forward incrementally, outside of the
// search: it's the type an interactive match (CLI or otherwise) uses to apply a human's or an
// external dice roll's moves one at a time. Every method panics if called out of turn or with an
// argument the current Status doesn't allow -- tracker callers are expected to consult Status and
// the relevant choice set before calling, the same contract-is-a-precondition style the rest of
// the engine uses internally; this is not the Setup-validation boundary (see package constants),
// it's the same "caller already knows the rules" assumption the rules package itself makes.
package tracker

import (
	"k8s.io/klog/v2"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/rules"
)

// Tracker holds one game's Constants and its current Position.
type Tracker struct {
	con *constants.Constants
	pos position.Position
}

// New starts a Tracker at the initial position for con: an empty board (with con.BlockedCells
// marked), full hands, con.StartingPlayer to move.
func New(con *constants.Constants) *Tracker {
	var pos position.Position
	pos.Status = position.AwaitingPlace
	pos.Turn = con.StartingPlayer
	pos.HandBlue = position.FullHand
	pos.HandRed = position.FullHand
	for i := range pos.Board {
		pos.Board[i] = position.EmptyCell
	}
	for c := range con.BlockedCells.Bits() {
		pos.Board[c] = position.BlockedCell
	}
	return &Tracker{con: con, pos: pos}
}

// Position returns the current position, by value.
func (t *Tracker) Position() position.Position {
	return t.pos
}

// PlaceCard places the card at hand index handCard onto cell, and resolves whatever cascade it
// triggers (free flips, or entry into AwaitingPickBattle/AwaitingResolveBattle). Requires Status
// == AwaitingPlace, player == the current pos.Turn, the card to be available in the mover's hand,
// and the cell to be empty.
func (t *Tracker) PlaceCard(player position.Player, handCard, cell uint8) {
	if t.pos.Status != position.AwaitingPlace {
		panic("tracker: PlaceCard called outside of AwaitingPlace")
	}
	if player != t.pos.Turn {
		panic("tracker: PlaceCard called for a player other than the one to move")
	}
	hand := t.pos.HandBlue
	if t.pos.Turn == position.Red {
		hand = t.pos.HandRed
	}
	if !hand.IsSet(handCard) {
		panic("tracker: PlaceCard called with a card not in the mover's hand")
	}
	if !t.pos.Board[cell].IsEmpty() {
		panic("tracker: PlaceCard called on a non-empty cell")
	}

	klog.V(3).Infof("tracker: %s places hand card %d at cell %d", t.pos.Turn, handCard, cell)
	t.pos = rules.ApplyAction(t.con, t.pos, position.Action{Kind: position.PlaceCardAction, Card: handCard, Cell: cell})
	t.logTransition()
}

// PickBattle selects one of the pending simultaneous defenders to fight. Requires Status ==
// AwaitingPickBattle, player == the current pos.Turn (the attacker mid-cascade), and cell to be
// one of PickChoices.
func (t *Tracker) PickBattle(player position.Player, cell uint8) {
	if t.pos.Status != position.AwaitingPickBattle {
		panic("tracker: PickBattle called outside of AwaitingPickBattle")
	}
	if player != t.pos.Turn {
		panic("tracker: PickBattle called for a player other than the one to move")
	}
	if !t.pos.PickChoices.Test(cell) {
		panic("tracker: PickBattle called with a cell that isn't one of the pending choices")
	}

	klog.V(3).Infof("tracker: %s picks defender at cell %d", t.pos.Turn, cell)
	t.pos = rules.ApplyAction(t.con, t.pos, position.Action{Kind: position.PickBattleAction, Cell: cell})
	t.logTransition()
}

// ResolveBattle settles the pending battle from externally observed random bytes (e.g. a
// physical die roll, or bytes replayed from a log), converting them into a winner via the
// battle system's roll function. Requires Status == AwaitingResolveBattle and player == the
// current pos.Turn (the attacker whose cascade the battle belongs to).
func (t *Tracker) ResolveBattle(player position.Player, attackRoll, defendRoll []uint8) {
	if t.pos.Status != position.AwaitingResolveBattle {
		panic("tracker: ResolveBattle called outside of AwaitingResolveBattle")
	}
	if player != t.pos.Turn {
		panic("tracker: ResolveBattle called for a player other than the one to move")
	}

	t.pos = rules.ApplyCommandResolveBattle(t.con, t.pos, attackRoll, defendRoll)
	klog.V(3).Infof("tracker: battle at cell %d vs %d resolved", t.pos.BattleAttackerCell, t.pos.BattleDefenderCell)
	t.logTransition()
}

func (t *Tracker) logTransition() {
	if !klog.V(3).Enabled() {
		return
	}
	switch t.pos.Status {
	case position.AwaitingPlace:
		klog.Infof("tracker: now %s to place, depth=%d", t.pos.Turn, t.pos.Depth)
	case position.AwaitingPickBattle:
		klog.Infof("tracker: now %s to pick a defender among %d choices", t.pos.Turn, t.pos.PickChoices.Count())
	case position.AwaitingResolveBattle:
		klog.Infof("tracker: battle pending at cell %d vs %d", t.pos.BattleAttackerCell, t.pos.BattleDefenderCell)
	case position.GameOver:
		klog.Infof("tracker: game over, final diff=%.0f", t.pos.Evaluate())
	}
}
