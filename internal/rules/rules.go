// Package rules implements the pure game-state transitions over a position.Position: action
// enumeration, action/resolution application, and the cascade of battles, combos, and free
// flips a placement triggers. Every function here takes the per-game constants.Constants by
// reference and a position.Position by value, and returns a new position.Position; none of
// them hold state of their own.
package rules

import (
	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/position"
)

// MaxPlaceActions bounds the size of a place-action buffer: every hand card against every
// board cell.
const MaxPlaceActions = position.NumCardsPerHand * position.NumCells

// MaxResolutions is the maximum number of chance outcomes a pending battle can have.
const MaxResolutions = 2

// EnumeratePlaceActions fills buf with every legal PlaceCard action at an AwaitingPlace
// position and returns the filled prefix. buf must have capacity >= MaxPlaceActions; its
// length is reset to 0 before filling, so callers can reuse the same backing array across
// search depths.
func EnumeratePlaceActions(pos *position.Position, buf []position.Action) []position.Action {
	buf = buf[:0]
	hand := pos.HandBlue
	if pos.Turn == position.Red {
		hand = pos.HandRed
	}
	for cell := uint8(0); cell < position.NumCells; cell++ {
		if !pos.Board[cell].IsEmpty() {
			continue
		}
		for card := uint8(0); card < position.NumCardsPerHand; card++ {
			if hand.IsSet(card) {
				buf = append(buf, position.Action{Kind: position.PlaceCardAction, Card: card, Cell: cell})
			}
		}
	}
	return buf
}

// EnumeratePickActions returns every legal PickBattle action at an AwaitingPickBattle
// position, in ascending cell order.
func EnumeratePickActions(pos *position.Position) []position.Action {
	var actions []position.Action
	for cell := range pos.PickChoices.Bits() {
		actions = append(actions, position.Action{Kind: position.PickBattleAction, Cell: cell})
	}
	return actions
}

// EnumerateResolutions returns the one or two chance outcomes of an AwaitingResolveBattle
// position, attacker-win first if present. A zero-probability outcome (snapped away by
// probCutoff at table-build time) is omitted.
func EnumerateResolutions(con *constants.Constants, pos *position.Position) []position.Resolution {
	matchup := con.Matchups[pos.BattleAttackerIdx][pos.BattleDefenderIdx]

	var resolutions [MaxResolutions]position.Resolution
	n := 0
	if matchup.AttackWinProb != 0 {
		resolutions[n] = position.Resolution{Winner: position.Attacker, Probability: matchup.AttackWinProb}
		n++
	}
	if matchup.AttackWinProb != 1 {
		resolutions[n] = position.Resolution{Winner: position.Defender, Probability: 1 - matchup.AttackWinProb}
		n++
	}
	return resolutions[:n]
}

// ApplyAction clones pos and applies a PlaceCard or PickBattle action, returning the
// successor position. PlaceCard additionally increments Depth.
func ApplyAction(con *constants.Constants, pos position.Position, action position.Action) position.Position {
	switch action.Kind {
	case position.PlaceCardAction:
		placeCard(con, &pos, action.Cell, action.Card)
		pos.Depth++
	case position.PickBattleAction:
		pickBattle(&pos, action.Cell)
	}
	return pos
}

// ApplyResolution clones pos and applies a chance outcome, returning the successor position.
// Depth is not touched.
func ApplyResolution(con *constants.Constants, pos position.Position, res position.Resolution) position.Position {
	resolveBattle(con, &pos, res.Winner)
	return pos
}

// ApplyCommandResolveBattle converts externally observed random bytes into a winner via the
// battle system's roll function and applies it. Used only by the tracker; the search instead
// drives resolutions from EnumerateResolutions/ApplyResolution.
func ApplyCommandResolveBattle(con *constants.Constants, pos position.Position, attackRoll, defendRoll []uint8) position.Position {
	if pos.Status != position.AwaitingResolveBattle {
		panic("ApplyCommandResolveBattle: position is not AwaitingResolveBattle")
	}
	matchup := con.Matchups[pos.BattleAttackerIdx][pos.BattleDefenderIdx]

	attackerRoll := roll(con.BattleSystem, matchup.AttackerValue, attackRoll)
	defenderRoll := roll(con.BattleSystem, matchup.DefenderValue, defendRoll)

	var winner position.BattleWinner
	switch {
	case attackerRoll > defenderRoll:
		winner = position.Attacker
	case attackerRoll < defenderRoll:
		winner = position.Defender
	default:
		winner = position.None
	}

	resolveBattle(con, &pos, winner)
	return pos
}

// roll implements the per-battle-system resolution of an observed random byte stream into a
// single comparable roll value.
func roll(bs position.BattleSystem, value uint8, numbers []uint8) uint8 {
	switch bs.Kind {
	case position.Original:
		if len(numbers) < 2 {
			panic("roll: Original battle system requires 2 random bytes")
		}
		min := value << 4
		max := min | 0xF
		stat1 := position.MapToRange(numbers[0], min, max)
		stat2 := position.MapToRange(numbers[1], 0, stat1)
		return stat1 - stat2
	case position.Dice:
		if uint8(len(numbers)) < value {
			panic("roll: Dice battle system requires value-many random bytes")
		}
		var sum uint8
		for i := uint8(0); i < value; i++ {
			sum += numbers[i]
		}
		return sum
	case position.Deterministic:
		return value
	case position.Test:
		if len(numbers) < 1 {
			panic("roll: Test battle system requires 1 random byte")
		}
		return numbers[0]
	default:
		panic("roll: unknown battle system")
	}
}

// placeCard requires pos.Status == AwaitingPlace. It clears the mover's hand bit, writes the
// card onto the board, and invokes the cascade at cell.
func placeCard(con *constants.Constants, pos *position.Position, cell, handCard uint8) {
	if pos.Status != position.AwaitingPlace {
		panic("placeCard: position is not AwaitingPlace")
	}

	var cardIdx position.CardIdx
	if pos.Turn == position.Blue {
		if !pos.HandBlue.IsSet(handCard) {
			panic("placeCard: card not in blue hand")
		}
		pos.HandBlue = pos.HandBlue.Unset(handCard)
		cardIdx = position.CardIdx(handCard)
	} else {
		if !pos.HandRed.IsSet(handCard) {
			panic("placeCard: card not in red hand")
		}
		pos.HandRed = pos.HandRed.Unset(handCard)
		cardIdx = position.CardIdx(handCard) + position.NumCardsPerHand
	}

	if !pos.Board[cell].IsEmpty() {
		panic("placeCard: cell is not empty")
	}
	pos.Board[cell] = position.NewCardCell(pos.Turn, cardIdx)
	if pos.Turn == position.Blue {
		pos.CellsBlue = pos.CellsBlue.Set(cell)
	} else {
		pos.CellsRed = pos.CellsRed.Set(cell)
	}

	cascade(con, pos, cell)
}

// pickBattle requires pos.Status == AwaitingPickBattle and cell to be one of the choices.
func pickBattle(pos *position.Position, cell uint8) {
	if pos.Status != position.AwaitingPickBattle {
		panic("pickBattle: position is not AwaitingPickBattle")
	}
	if !pos.PickChoices.Test(cell) {
		panic("pickBattle: cell is not one of the pending choices")
	}
	startBattle(pos, pos.PickAttackerCell, cell)
}

// cascade classifies the opponent-owned cells reachable from attacker cell c into defenders
// (cells whose card points back at c) and non-defenders, then dispatches on how many
// defenders were found.
func cascade(con *constants.Constants, pos *position.Position, attackerCell uint8) {
	attackerIdx := pos.Board[attackerCell].CardIdx()
	reach := con.Interactions[attackerIdx][attackerCell]
	opp := pos.CellsOwnedBy(pos.Turn.Opposite()).And(reach)

	var defenders, nonDefenders position.CellSet
	for d := range opp.Bits() {
		defenderIdx := pos.Board[d].CardIdx()
		if con.Interactions[defenderIdx][d].Test(attackerCell) {
			defenders = defenders.Set(d)
		} else {
			nonDefenders = nonDefenders.Set(d)
		}
	}

	switch defenders.Count() {
	case 0:
		for d := range nonDefenders.Bits() {
			pos.FlipCell(d)
		}
		endTurnOrGameOver(pos)
	case 1:
		defenderCell, _ := firstBit(defenders)
		startBattle(pos, attackerCell, defenderCell)
	default:
		pos.Status = position.AwaitingPickBattle
		pos.PickAttackerCell = attackerCell
		pos.PickChoices = defenders
	}
}

// startBattle sets pos to AwaitingResolveBattle for the given attacker/defender cells.
func startBattle(pos *position.Position, attackerCell, defenderCell uint8) {
	pos.Status = position.AwaitingResolveBattle
	pos.BattleAttackerCell = attackerCell
	pos.BattleDefenderCell = defenderCell
	pos.BattleAttackerIdx = pos.Board[attackerCell].CardIdx()
	pos.BattleDefenderIdx = pos.Board[defenderCell].CardIdx()
}

// resolveBattle applies the outcome of an AwaitingResolveBattle position: flips the loser,
// applies combo flips off the loser's arrows, then either re-enters the cascade (attacker won)
// or ends the turn (defender won, including a None tie, which flips the attacker exactly like
// a defender win).
func resolveBattle(con *constants.Constants, pos *position.Position, winner position.BattleWinner) {
	if pos.Status != position.AwaitingResolveBattle {
		panic("resolveBattle: position is not AwaitingResolveBattle")
	}
	attackerCell := pos.BattleAttackerCell
	defenderCell := pos.BattleDefenderCell

	var loserCell uint8
	if winner == position.Attacker {
		loserCell = defenderCell
	} else {
		loserCell = attackerCell
	}
	pos.FlipCell(loserCell)

	loserIdx := pos.Board[loserCell].CardIdx()
	loserOwner := pos.Board[loserCell].Owner()
	for _, n := range position.Neighbors(loserCell) {
		if !pos.Board[n.Cell].IsCard() {
			continue
		}
		if pos.Board[n.Cell].Owner() == loserOwner {
			continue
		}
		if !con.Cards[loserIdx].Arrows.Has(n.Dir) {
			continue
		}
		pos.FlipCell(n.Cell)
	}

	if winner == position.Attacker {
		cascade(con, pos, attackerCell)
	} else {
		endTurnOrGameOver(pos)
	}
}

// endTurnOrGameOver sets Status to GameOver if both hands are empty, otherwise advances to the
// next player's AwaitingPlace turn.
func endTurnOrGameOver(pos *position.Position) {
	if pos.IsGameOver() {
		pos.Status = position.GameOver
		return
	}
	pos.Status = position.AwaitingPlace
	pos.Turn = pos.Turn.Opposite()
}

// firstBit returns the least-significant set bit of s and whether s was non-empty.
func firstBit(s position.CellSet) (uint8, bool) {
	for b := range s.Bits() {
		return b, true
	}
	return 0, false
}
