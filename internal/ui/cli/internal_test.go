package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/tracker"
)

func TestDisplayWidthStripsANSI(t *testing.T) {
	assert.Equal(t, 5, displayWidth("hello"))
	assert.Equal(t, 5, displayWidth("\033[34;1mhello\033[0m"))
	assert.Equal(t, 0, displayWidth(""))
}

func TestCenterStringPadsEvenly(t *testing.T) {
	assert.Equal(t, "  ab  ", centerString("ab", 6))
	assert.Equal(t, " abc ", centerString("abc", 5))
	// An odd total pad splits with the extra space on the right.
	assert.Equal(t, " a  ", centerString("a", 4))
}

func TestCenterStringWiderThanFitReturnsUnchanged(t *testing.T) {
	assert.Equal(t, "toolong", centerString("toolong", 3))
}

func TestPlaceParserAcceptsWellFormed(t *testing.T) {
	for _, text := range []string{"1 2\n", "1,2\n", "  1   2  \n", "0 15\n"} {
		assert.True(t, placeParser.MatchString(text), "want match for %q", text)
	}
	matches := placeParser.FindStringSubmatch("3 7\n")
	require.NotNil(t, matches)
	assert.Equal(t, "3", matches[1])
	assert.Equal(t, "7", matches[2])
}

func TestPlaceParserRejectsMalformed(t *testing.T) {
	for _, text := range []string{"\n", "1\n", "a b\n", "1 2 3\n", "P1\n"} {
		assert.False(t, placeParser.MatchString(text), "want no match for %q", text)
	}
}

func TestPickParserAcceptsWellFormed(t *testing.T) {
	for _, text := range []string{"P5\n", "p 5\n", "  P12  \n"} {
		assert.True(t, pickParser.MatchString(text), "want match for %q", text)
	}
	matches := pickParser.FindStringSubmatch("P9\n")
	require.NotNil(t, matches)
	assert.Equal(t, "9", matches[1])
}

func TestPickParserRejectsMalformed(t *testing.T) {
	for _, text := range []string{"\n", "5\n", "Q5\n", "1 2\n"} {
		assert.False(t, pickParser.MatchString(text), "want no match for %q", text)
	}
}

// TestRenderCellGlyphs places a single four-armed card and checks that renderCell produces the
// full set of arrow glyphs, with color disabled so the asserted strings aren't interleaved with
// escape sequences.
func TestRenderCellGlyphs(t *testing.T) {
	var blue [position.NumCardsPerHand]position.Card
	blue[0] = position.Card{
		Attack: 7, PhysicalDefense: 3, MagicalDefense: 5, Type: position.Physical,
		Arrows: position.Arrows(position.Up) | position.Arrows(position.Down) |
			position.Arrows(position.Left) | position.Arrows(position.Right),
	}
	var red [position.NumCardsPerHand]position.Card
	con, err := constants.New(constants.Setup{
		BattleSystem:   position.BattleSystem{Kind: position.Deterministic},
		HandBlue:       blue,
		HandRed:        red,
		StartingPlayer: position.Blue,
	}, constants.Config{Player: position.Blue, MaxDepth: 1})
	require.NoError(t, err)

	tr := tracker.New(con)
	tr.PlaceCard(position.Blue, 0, 5)

	ui := New(con, false)
	lines := ui.renderCell(tr.Position(), 5)
	require.Len(t, lines, cellHeight)
	assert.Contains(t, lines[0], "^")
	assert.Contains(t, lines[1], "<")
	assert.Contains(t, lines[1], ">")
	assert.Contains(t, lines[1], "B0")
	assert.Contains(t, lines[2], "v")
}

func TestRenderCellEmptyShowsIndex(t *testing.T) {
	var hand [position.NumCardsPerHand]position.Card
	con, err := constants.New(constants.Setup{
		BattleSystem:   position.BattleSystem{Kind: position.Deterministic},
		HandBlue:       hand,
		HandRed:        hand,
		StartingPlayer: position.Blue,
	}, constants.Config{Player: position.Blue, MaxDepth: 1})
	require.NoError(t, err)

	tr := tracker.New(con)
	ui := New(con, false)
	lines := ui.renderCell(tr.Position(), 12)
	assert.Contains(t, lines[1], "12")
}

func TestRenderCellBlockedShowsSlashes(t *testing.T) {
	var hand [position.NumCardsPerHand]position.Card
	con, err := constants.New(constants.Setup{
		BattleSystem:   position.BattleSystem{Kind: position.Deterministic},
		HandBlue:       hand,
		HandRed:        hand,
		StartingPlayer: position.Blue,
		BlockedCells:   []uint8{6},
	}, constants.Config{Player: position.Blue, MaxDepth: 1})
	require.NoError(t, err)

	tr := tracker.New(con)
	ui := New(con, false)
	lines := ui.renderCell(tr.Position(), 6)
	assert.Contains(t, lines[1], "////")
}
