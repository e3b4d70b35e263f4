// Package position holds the bit-packed mutable game state used by the search: the board,
// the two hands, whose turn it is and what the engine is waiting on next.
//
// Everything here is a small value type (a handful of bytes) so that cloning a Position at
// every search edge is a plain copy, never a heap allocation.
package position

import (
	"fmt"
	"math/bits"
)

// Player identifies one of the two sides.
type Player uint8

const (
	Blue Player = iota
	Red
)

// Opposite returns the other player.
func (p Player) Opposite() Player {
	if p == Blue {
		return Red
	}
	return Blue
}

func (p Player) String() string {
	if p == Blue {
		return "Blue"
	}
	return "Red"
}

// CardType determines how a card's attacker/defender stat is picked during a battle, see
// Matchup in package constants.
type CardType uint8

const (
	Physical CardType = iota
	Magical
	Exploit
	Assault
)

func (t CardType) String() string {
	switch t {
	case Physical:
		return "Physical"
	case Magical:
		return "Magical"
	case Exploit:
		return "Exploit"
	case Assault:
		return "Assault"
	default:
		return "?"
	}
}

// ArrowDir is one of the 8 compass directions a card's arrows can point to, relative to the
// cell the card sits on.
type ArrowDir uint8

const (
	Up ArrowDir = 1 << iota
	UpRight
	Right
	DownRight
	Down
	DownLeft
	Left
	UpLeft
)

// Reverse returns the opposite direction: the same bit rotated 180 degrees, i.e. by 4 of the
// 8 possible positions.
func (a ArrowDir) Reverse() ArrowDir {
	return ArrowDir(bits.RotateLeft8(uint8(a), 4))
}

func (a ArrowDir) String() string {
	names := map[ArrowDir]string{
		Up: "Up", UpRight: "UpRight", Right: "Right", DownRight: "DownRight",
		Down: "Down", DownLeft: "DownLeft", Left: "Left", UpLeft: "UpLeft",
	}
	if s, ok := names[a]; ok {
		return s
	}
	return fmt.Sprintf("ArrowDir(%#02x)", uint8(a))
}

// Arrows is the 8-bit mask of directions a card points to, one bit per ArrowDir.
type Arrows uint8

// Has returns whether the given direction is set in the mask.
func (a Arrows) Has(dir ArrowDir) bool {
	return a&Arrows(dir) != 0
}

// Card is one of the ten fixed cards in play for a game.
type Card struct {
	Attack          uint8 // 0..15 (u4)
	PhysicalDefense uint8 // 0..15 (u4)
	MagicalDefense  uint8 // 0..15 (u4)
	Type            CardType
	Arrows          Arrows
}

// CardIdx identifies one of the 10 cards of a game: 0..4 are Blue's initial hand in hand
// order, 5..9 are Red's.
type CardIdx uint8

// NumCardsPerHand is the number of cards each player starts a game with.
const NumCardsPerHand = 5

// NumCards is the total number of distinct cards in one game.
const NumCards = 2 * NumCardsPerHand

// NumCells is the number of playable cells on the board.
const NumCells = 16

// BoardSide is the number of rows/columns of the (square) board.
const BoardSide = 4

// Hand is a 5-bit set: bit i is set iff the card at hand index i hasn't been placed yet.
type Hand uint8

// FullHand is the initial value of a Hand: all 5 cards available.
const FullHand Hand = 0b0001_1111

// IsSet reports whether the card at the given hand index is still available.
func (h Hand) IsSet(idx uint8) bool {
	return h&(1<<idx) != 0
}

// Unset clears the bit for the given hand index, returning the updated Hand.
func (h Hand) Unset(idx uint8) Hand {
	return h &^ (1 << idx)
}

// IsEmpty reports whether no card is left in the hand.
func (h Hand) IsEmpty() bool {
	return h == 0
}

// cellTag is the one-hot low nibble of a Cell.
type cellTag uint8

const (
	tagBlue    cellTag = 0b0001
	tagRed     cellTag = 0b0010
	tagBlocked cellTag = 0b0100
	tagEmpty   cellTag = 0b1000
)

// Cell packs the content of one board square into a single byte: the low nibble is a
// one-hot tag (Empty, Blocked, or Card-owned-by-Blue/Red) and, when the tag indicates a
// card, the high nibble holds the CardIdx.
type Cell uint8

// EmptyCell is the value of an empty square. It is not Cell's zero value, which has no tag
// bit set.
var EmptyCell = Cell(tagEmpty)

// BlockedCell marks a square that can never be played on.
var BlockedCell = Cell(tagBlocked)

// NewCardCell returns a Cell holding the given card owned by the given player.
func NewCardCell(owner Player, idx CardIdx) Cell {
	tag := tagBlue
	if owner == Red {
		tag = tagRed
	}
	return Cell(uint8(idx)<<4 | uint8(tag))
}

// IsEmpty reports whether the cell is empty.
func (c Cell) IsEmpty() bool {
	return cellTag(c&0b1111) == tagEmpty
}

// IsBlocked reports whether the cell is blocked.
func (c Cell) IsBlocked() bool {
	return cellTag(c&0b1111) == tagBlocked
}

// IsCard reports whether the cell holds a card.
func (c Cell) IsCard() bool {
	tag := cellTag(c & 0b1111)
	return tag == tagBlue || tag == tagRed
}

// Owner returns the owner of the card in the cell. Only valid if IsCard().
func (c Cell) Owner() Player {
	if cellTag(c&0b1111) == tagBlue {
		return Blue
	}
	return Red
}

// CardIdx returns the card identity held by the cell. Only valid if IsCard().
func (c Cell) CardIdx() CardIdx {
	return CardIdx(c >> 4)
}

// Flip toggles the owner of the card in the cell (Blue<->Red), preserving the CardIdx.
// Only valid if IsCard().
func (c Cell) Flip() Cell {
	return c ^ Cell(tagBlue|tagRed)
}

func (c Cell) String() string {
	switch {
	case c.IsEmpty():
		return "."
	case c.IsBlocked():
		return "#"
	default:
		return fmt.Sprintf("%s%d", c.Owner().String()[:1], c.CardIdx())
	}
}

// CellSet is a 16-bit mask over the board's cells, bit i corresponding to cell i.
type CellSet uint16

// Set returns the set with bit i turned on.
func (s CellSet) Set(i uint8) CellSet {
	return s | CellSet(1)<<i
}

// Flip returns the set with bit i toggled.
func (s CellSet) Flip(i uint8) CellSet {
	return s ^ CellSet(1)<<i
}

// Test reports whether bit i is set.
func (s CellSet) Test(i uint8) bool {
	return s&(CellSet(1)<<i) != 0
}

// Count returns the number of set bits (population count).
func (s CellSet) Count() int {
	return bits.OnesCount16(uint16(s))
}

// Or is the bitwise union.
func (s CellSet) Or(other CellSet) CellSet {
	return s | other
}

// And is the bitwise intersection.
func (s CellSet) And(other CellSet) CellSet {
	return s & other
}

// Not is the bitwise complement, restricted to the 16 playable bits.
func (s CellSet) Not() CellSet {
	return ^s
}

// Bits iterates the set bits of s from least to most significant.
func (s CellSet) Bits() func(yield func(uint8) bool) {
	return func(yield func(uint8) bool) {
		for rest := s; rest != 0; {
			i := uint8(bits.TrailingZeros16(uint16(rest)))
			if !yield(i) {
				return
			}
			rest &= rest - 1
		}
	}
}

// UnsetBits iterates the cells of the board (0..NumCells) whose bit is NOT set in s, from
// least to most significant.
func (s CellSet) UnsetBits() func(yield func(uint8) bool) {
	return s.Not().Bits()
}

// BattleSystemKind selects which randomness model resolves a battle.
type BattleSystemKind uint8

const (
	Deterministic BattleSystemKind = iota
	Original
	Dice
	Test
)

// BattleSystem configures how battles are resolved. DiceSides is only meaningful when
// Kind == Dice.
type BattleSystem struct {
	Kind      BattleSystemKind
	DiceSides uint8
}

// BattleWinner is the outcome of a resolved battle. None only ever arises from an observed
// tie via ApplyCommandResolveBattle (the tracker's path); the search itself only ever
// produces Attacker/Defender resolutions, see package constants.
type BattleWinner uint8

const (
	Attacker BattleWinner = iota
	Defender
	None
)

// Resolution is one of the up-to-two possible outcomes of a pending battle, together with
// its (snapped) probability.
type Resolution struct {
	Winner      BattleWinner
	Probability float32
}

// StatusKind discriminates what a Position is waiting on next.
type StatusKind uint8

const (
	AwaitingPlace StatusKind = iota
	AwaitingPickBattle
	AwaitingResolveBattle
	GameOver
)

// ActionKind discriminates the two possible Action shapes.
type ActionKind uint8

const (
	PlaceCardAction ActionKind = iota
	PickBattleAction
)

// Action is one legal move: either placing a card from the hand, or picking which of
// several simultaneous defenders to battle.
type Action struct {
	Kind ActionKind
	Card uint8 // hand index 0..4, only valid for PlaceCardAction
	Cell uint8 // board cell 0..15
}

func (a Action) String() string {
	if a.Kind == PlaceCardAction {
		return fmt.Sprintf("Place(card=%d, cell=%d)", a.Card, a.Cell)
	}
	return fmt.Sprintf("Pick(cell=%d)", a.Cell)
}

// Position is the mutable per-node search state: board cells, hand bitsets, whose turn it
// is, and what the engine is waiting on next. It is small and copied by value at every
// search edge.
type Position struct {
	Depth  uint8
	Status StatusKind
	Turn   Player

	Board [NumCells]Cell

	HandBlue, HandRed Hand

	// CellsBlue/CellsRed are kept consistent with Board by every mutator; they let the
	// rules engine and the leaf evaluator avoid scanning the whole board.
	CellsBlue, CellsRed CellSet

	// Fields below are only meaningful for the matching Status.

	// AwaitingPickBattle:
	PickAttackerCell uint8
	PickChoices      CellSet

	// AwaitingResolveBattle:
	BattleAttackerCell uint8
	BattleDefenderCell uint8
	BattleAttackerIdx  CardIdx
	BattleDefenderIdx  CardIdx
}

// CellsOwnedBy returns the cell-set owned by the given player.
func (p *Position) CellsOwnedBy(player Player) CellSet {
	if player == Blue {
		return p.CellsBlue
	}
	return p.CellsRed
}

// FlipCell toggles the owner of the card at cell c, keeping CellsBlue/CellsRed consistent.
// The caller must ensure Board[c] holds a card.
func (p *Position) FlipCell(c uint8) {
	p.Board[c] = p.Board[c].Flip()
	p.CellsBlue = p.CellsBlue.Flip(c)
	p.CellsRed = p.CellsRed.Flip(c)
}

// IsGameOver reports whether both hands are empty.
func (p *Position) IsGameOver() bool {
	return p.HandBlue.IsEmpty() && p.HandRed.IsEmpty()
}

// Evaluate is the leaf heuristic: the count of cells owned by the player about to move
// minus the count owned by the opponent. Only meaningful once Status == GameOver, but well
// defined for any Position.
func (p *Position) Evaluate() float32 {
	mine := p.CellsOwnedBy(p.Turn).Count()
	theirs := p.CellsOwnedBy(p.Turn.Opposite()).Count()
	return float32(mine - theirs)
}

// MapToRange maps a uniformly random byte onto the inclusive range [lo, hi] without a modulo.
// src: https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction
func MapToRange(num, lo, hi uint8) uint8 {
	if lo == 0 {
		if hi == 0xFF {
			return num
		}
		return map0ToMax(num, hi+1)
	}
	return lo + map0ToMax(num, hi-lo+1)
}

func map0ToMax(num, max uint8) uint8 {
	return uint8((uint16(num) * uint16(max)) >> 8)
}
