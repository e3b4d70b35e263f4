// Package constants builds and holds the per-game immutable tables the search and rules
// engine depend on: the ten card identities, the attacker/defender matchup table, and the
// arrow-interaction table. Everything here is built once from a Setup and never mutated
// afterwards.
package constants

import (
	"github.com/pkg/errors"

	"github.com/tetracore/engine/internal/position"
)

// Setup is the external, possibly-untrusted configuration a game starts from. This is the
// one boundary in the engine where input is validated rather than merely asserted.
type Setup struct {
	BattleSystem   position.BattleSystem
	BlockedCells   []uint8
	HandBlue       [position.NumCardsPerHand]position.Card
	HandRed        [position.NumCardsPerHand]position.Card
	StartingPlayer position.Player
}

// Config holds the parameters of one AI instance: which side it plays and how deep/loose its
// search runs.
type Config struct {
	Player     position.Player
	MaxDepth   uint8
	ProbCutoff float32
}

// Matchup is the precomputed outcome of one (attacker, defender) card pairing: which stat
// each side uses, and the attacker's probability of winning a battle between them.
type Matchup struct {
	AttackerValue uint8
	DefenderValue uint8
	AttackWinProb float32
}

// Constants is the full set of per-game immutable tables, built once at AI construction.
type Constants struct {
	Player         position.Player
	BattleSystem   position.BattleSystem
	MaxDepth       uint8
	ProbCutoff     float32
	StartingPlayer position.Player

	Cards        [position.NumCards]position.Card
	Interactions [position.NumCards][position.NumCells]position.CellSet
	Matchups     [position.NumCards][position.NumCards]Matchup
	BlockedCells position.CellSet
}

// New validates setup and cfg and builds the Constants for one game.
func New(setup Setup, cfg Config) (*Constants, error) {
	if cfg.ProbCutoff < 0 || cfg.ProbCutoff >= 0.5 {
		return nil, errors.Errorf("probCutoff must be in [0, 0.5), got %v", cfg.ProbCutoff)
	}
	if setup.BattleSystem.Kind == position.Dice && setup.BattleSystem.DiceSides == 0 {
		return nil, errors.New("dice battle system requires DiceSides > 0")
	}

	seen := position.CellSet(0)
	for _, c := range setup.BlockedCells {
		if c >= position.NumCells {
			return nil, errors.Errorf("blocked cell %d out of range 0..%d", c, position.NumCells-1)
		}
		if seen.Test(c) {
			return nil, errors.Errorf("blocked cell %d repeated", c)
		}
		seen = seen.Set(c)
	}

	con := &Constants{
		Player:         cfg.Player,
		BattleSystem:   setup.BattleSystem,
		MaxDepth:       cfg.MaxDepth,
		ProbCutoff:     cfg.ProbCutoff,
		StartingPlayer: setup.StartingPlayer,
		BlockedCells:   seen,
	}

	for i, card := range setup.HandBlue {
		if err := validateCard(card); err != nil {
			return nil, errors.Wrapf(err, "blue hand card %d", i)
		}
		con.Cards[i] = card
	}
	for i, card := range setup.HandRed {
		if err := validateCard(card); err != nil {
			return nil, errors.Wrapf(err, "red hand card %d", i)
		}
		con.Cards[position.NumCardsPerHand+i] = card
	}

	for attackerIdx := range con.Cards {
		for defenderIdx := range con.Cards {
			con.Matchups[attackerIdx][defenderIdx] = computeMatchup(
				setup.BattleSystem, cfg.ProbCutoff, con.Cards[attackerIdx], con.Cards[defenderIdx])
		}
	}

	for cardIdx, card := range con.Cards {
		for cell := uint8(0); cell < position.NumCells; cell++ {
			con.Interactions[cardIdx][cell] = reachableFrom(card, cell)
		}
	}

	return con, nil
}

func validateCard(c position.Card) error {
	if c.Attack > 0xF {
		return errors.Errorf("attack %d out of u4 range", c.Attack)
	}
	if c.PhysicalDefense > 0xF {
		return errors.Errorf("physicalDefense %d out of u4 range", c.PhysicalDefense)
	}
	if c.MagicalDefense > 0xF {
		return errors.Errorf("magicalDefense %d out of u4 range", c.MagicalDefense)
	}
	return nil
}

// reachableFrom computes the cell-set that a card with the given arrows reaches in one step
// from cell, per the fixed board adjacency.
func reachableFrom(card position.Card, cell uint8) position.CellSet {
	var reach position.CellSet
	for _, n := range position.Neighbors(cell) {
		if card.Arrows.Has(n.Dir) {
			reach = reach.Set(n.Cell)
		}
	}
	return reach
}

// computeMatchup picks the attacker/defender stat per card type and looks up the attacker's
// win probability, snapping it to 0/1 outside [probCutoff, 1-probCutoff].
func computeMatchup(bs position.BattleSystem, probCutoff float32, attacker, defender position.Card) Matchup {
	attackerValue := attacker.Attack
	if attacker.Type == position.Assault {
		// highest of the three stats; ties favor attack, then physical.
		switch {
		case attacker.MagicalDefense > attacker.Attack && attacker.MagicalDefense > attacker.PhysicalDefense:
			attackerValue = attacker.MagicalDefense
		case attacker.PhysicalDefense > attacker.Attack:
			attackerValue = attacker.PhysicalDefense
		default:
			attackerValue = attacker.Attack
		}
	}

	var defenderValue uint8
	switch attacker.Type {
	case position.Physical:
		defenderValue = defender.PhysicalDefense
	case position.Magical:
		defenderValue = defender.MagicalDefense
	case position.Exploit:
		// lowest defense stat; ties favor physical.
		if defender.PhysicalDefense < defender.MagicalDefense {
			defenderValue = defender.PhysicalDefense
		} else {
			defenderValue = defender.MagicalDefense
		}
	case position.Assault:
		// lowest of the three stats; ties favor attack, then physical.
		switch {
		case defender.Attack < defender.PhysicalDefense && defender.Attack < defender.MagicalDefense:
			defenderValue = defender.Attack
		case defender.PhysicalDefense < defender.MagicalDefense:
			defenderValue = defender.PhysicalDefense
		default:
			defenderValue = defender.MagicalDefense
		}
	}

	prob := winProbability(bs, attackerValue, defenderValue)
	if prob < probCutoff {
		prob = 0
	}
	if prob > 1-probCutoff {
		prob = 1
	}

	return Matchup{
		AttackerValue: attackerValue,
		DefenderValue: defenderValue,
		AttackWinProb: prob,
	}
}
