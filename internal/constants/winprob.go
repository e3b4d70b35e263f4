package constants

import "github.com/tetracore/engine/internal/position"

// winProbability returns the probability that a battler with the given attacker stat value
// wins, strictly, against a battler with the given defender stat value, under bs. Values are
// 0..15 (the u4 card stat range).
func winProbability(bs position.BattleSystem, attackerValue, defenderValue uint8) float32 {
	switch bs.Kind {
	case position.Deterministic:
		if attackerValue > defenderValue {
			return 1
		}
		return 0
	case position.Dice:
		return diceWinProbability(bs.DiceSides, attackerValue, defenderValue)
	case position.Original:
		return originalWinProbability(attackerValue, defenderValue)
	case position.Test:
		// Test feeds raw external bytes unrelated to the stat values; there is no
		// stat-driven probability model to derive, so the search treats it like
		// Deterministic. Test is only ever exercised through the tracker's observed-roll
		// path (applyCommandResolveBattle), never through the search itself.
		if attackerValue > defenderValue {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// originalResultPMF returns, for a battler of the given stat value under the Original battle
// system, the probability mass function of its roll result (0..255) over the two uniform
// random bytes the system consumes.
func originalResultPMF(value uint8) [256]float32 {
	var pmf [256]float32
	min := value << 4
	max := min | 0xF
	const unit = float32(1) / (256 * 256)
	for b1 := 0; b1 < 256; b1++ {
		stat1 := position.MapToRange(uint8(b1), min, max)
		for b2 := 0; b2 < 256; b2++ {
			stat2 := position.MapToRange(uint8(b2), 0, stat1)
			pmf[stat1-stat2] += unit
		}
	}
	return pmf
}

// originalWinProbability derives P(attackerRoll > defenderRoll) from the two battlers'
// independent result distributions under the Original battle system.
func originalWinProbability(attackerValue, defenderValue uint8) float32 {
	attackerPMF := originalResultPMF(attackerValue)
	defenderPMF := originalResultPMF(defenderValue)

	// cdfLess[r] = P(defenderRoll < r)
	var cdfLess [257]float32
	for r := 0; r < 256; r++ {
		cdfLess[r+1] = cdfLess[r] + defenderPMF[r]
	}

	var winProb float32
	for r1 := 0; r1 < 256; r1++ {
		if attackerPMF[r1] == 0 {
			continue
		}
		winProb += attackerPMF[r1] * cdfLess[r1]
	}
	return winProb
}

// diceSumPMF returns the distribution of the sum of `count` independent dice, each uniform
// over 1..sides, via repeated convolution.
func diceSumPMF(count, sides uint8) map[uint16]float32 {
	pmf := map[uint16]float32{0: 1}
	if sides == 0 {
		return pmf
	}
	unit := float32(1) / float32(sides)
	for i := uint8(0); i < count; i++ {
		next := make(map[uint16]float32, len(pmf)+int(sides))
		for sum, p := range pmf {
			for face := uint16(1); face <= uint16(sides); face++ {
				next[sum+face] += p * unit
			}
		}
		pmf = next
	}
	return pmf
}

// diceWinProbability derives P(attackerSum > defenderSum) for the Dice{sides} battle system,
// where each battler sums its stat-value-many dice.
func diceWinProbability(sides, attackerValue, defenderValue uint8) float32 {
	attackerPMF := diceSumPMF(attackerValue, sides)
	defenderPMF := diceSumPMF(defenderValue, sides)

	maxSum := uint16(attackerValue)*uint16(sides) + 1
	if dMax := uint16(defenderValue)*uint16(sides) + 1; dMax > maxSum {
		maxSum = dMax
	}

	cdfLess := make([]float32, maxSum+1)
	for sum, p := range defenderPMF {
		cdfLess[sum] += p
	}
	for i := uint16(1); i < uint16(len(cdfLess)); i++ {
		cdfLess[i] += cdfLess[i-1]
	}

	var winProb float32
	for sum, p := range attackerPMF {
		if sum == 0 {
			continue
		}
		winProb += p * cdfLess[sum-1]
	}
	return winProb
}
