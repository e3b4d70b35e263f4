// Package cli implements a terminal UI for driving one game through an internal/tracker.Tracker:
// rendering the 4x4 arrow board and hands, and parsing a human's placement/pick/resolve input.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/tracker"
)

const (
	cellWidth  = 9
	cellHeight = 3
)

var ansiFilter = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// displayWidth of s removes its color/control sequences and returns the length of what is left.
func displayWidth(s string) int {
	return len(ansiFilter.ReplaceAllString(s, ""))
}

func printCentered(block string) {
	lines := strings.Split(block, "\n")
	terminalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	blockWidth := 0
	for _, line := range lines {
		if w := displayWidth(line); w > blockWidth {
			blockWidth = w
		}
	}
	indent := (terminalWidth - blockWidth) / 2
	if indent < 0 {
		indent = 0
	}
	for _, line := range lines {
		fmt.Printf("%s%s\n", strings.Repeat(" ", indent), line)
	}
}

func centerString(s string, fit int) string {
	w := displayWidth(s)
	if w >= fit {
		return s
	}
	marginLeft := (fit - w) / 2
	marginRight := fit - w - marginLeft
	return strings.Repeat(" ", marginLeft) + s + strings.Repeat(" ", marginRight)
}

// UI drives one Tracker interactively from the terminal.
type UI struct {
	con    *constants.Constants
	color  bool
	reader *bufio.Reader
}

var (
	placeParser = regexp.MustCompile(`^\s*(\d+)[\s,]+(\d+)\s*$`)
	pickParser  = regexp.MustCompile(`(?i)^\s*P\s*(\d+)\s*$`)

	parsingErrorMsg = "failed to read command 3 times"
)

func New(con *constants.Constants, color bool) *UI {
	return &UI{con: con, color: color, reader: bufio.NewReader(os.Stdin)}
}

// Run drives tr to GameOver, printing the board and prompting for input at every decision
// point. It returns once the tracked game finishes.
func (ui *UI) Run(tr *tracker.Tracker) error {
	for tr.Position().Status != position.GameOver {
		if err := ui.Step(tr); err != nil {
			return err
		}
	}
	ui.Print(tr.Position())
	ui.PrintWinner(tr.Position())
	return nil
}

// Step prints the current position and prompts for exactly one decision at it: a placement, a
// defender pick, or a battle-resolution roll. Callers driving an AI themselves (see
// cmd/tetracore) should call Step only when they want the UI to handle the current decision --
// e.g. for AwaitingResolveBattle nodes reached mid an AI's own cascade, which this engine's AI
// does not automate (it only chooses placements and defender picks).
func (ui *UI) Step(tr *tracker.Tracker) error {
	pos := tr.Position()
	ui.Print(pos)
	switch pos.Status {
	case position.AwaitingPlace:
		return ui.runPlace(tr)
	case position.AwaitingPickBattle:
		return ui.runPick(tr)
	case position.AwaitingResolveBattle:
		return ui.runResolve(tr)
	default:
		return nil
	}
}

func (ui *UI) runPlace(tr *tracker.Tracker) error {
	for numErrs := 0; numErrs < 3; numErrs++ {
		fmt.Print("\n  place <hand index> <cell> > ")
		text, err := ui.reader.ReadString('\n')
		if err != nil {
			return err
		}
		matches := placeParser.FindStringSubmatch(text)
		if matches == nil {
			fmt.Printf("    * couldn't parse %q, want two numbers: hand index, then cell\n", strings.TrimSpace(text))
			continue
		}
		handCard, _ := strconv.ParseUint(matches[1], 10, 8)
		cell, _ := strconv.ParseUint(matches[2], 10, 8)
		if handCard >= position.NumCardsPerHand || cell >= position.NumCells {
			fmt.Printf("    * hand index must be 0..%d, cell must be 0..%d\n",
				position.NumCardsPerHand-1, position.NumCells-1)
			continue
		}
		placed := ui.tryPlace(tr, uint8(handCard), uint8(cell))
		if placed {
			return nil
		}
	}
	return errors.New(parsingErrorMsg)
}

// tryPlace applies a placement, recovering from the tracker's precondition panics (a card not
// in hand, or an occupied cell) rather than letting them escape the input loop.
func (ui *UI) tryPlace(tr *tracker.Tracker, handCard, cell uint8) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("    * %v\n", r)
			ok = false
		}
	}()
	tr.PlaceCard(tr.Position().Turn, handCard, cell)
	return true
}

func (ui *UI) runPick(tr *tracker.Tracker) error {
	pos := tr.Position()
	fmt.Print("\n  pending defenders: ")
	for cell := range pos.PickChoices.Bits() {
		fmt.Printf("P%d ", cell)
	}
	fmt.Println()

	for numErrs := 0; numErrs < 3; numErrs++ {
		fmt.Print("  pick defender > ")
		text, err := ui.reader.ReadString('\n')
		if err != nil {
			return err
		}
		matches := pickParser.FindStringSubmatch(text)
		if matches == nil {
			fmt.Printf("    * couldn't parse %q, want e.g. \"P%d\"\n", strings.TrimSpace(text), firstChoice(pos.PickChoices))
			continue
		}
		cell, _ := strconv.ParseUint(matches[1], 10, 8)
		if !pos.PickChoices.Test(uint8(cell)) {
			fmt.Printf("    * %d is not one of the pending choices\n", cell)
			continue
		}
		tr.PickBattle(pos.Turn, uint8(cell))
		return nil
	}
	return errors.New(parsingErrorMsg)
}

func firstChoice(s position.CellSet) uint8 {
	for c := range s.Bits() {
		return c
	}
	return 0
}

func (ui *UI) runResolve(tr *tracker.Tracker) error {
	pos := tr.Position()
	matchup := ui.con.Matchups[pos.BattleAttackerIdx][pos.BattleDefenderIdx]

	attackRoll, err := ui.readRolls("attacker", ui.con.BattleSystem, matchup.AttackerValue)
	if err != nil {
		return err
	}
	defendRoll, err := ui.readRolls("defender", ui.con.BattleSystem, matchup.DefenderValue)
	if err != nil {
		return err
	}
	tr.ResolveBattle(pos.Turn, attackRoll, defendRoll)
	return nil
}

// readRolls prompts for however many random bytes the configured battle system needs for one
// side of a battle; under Deterministic it needs none.
func (ui *UI) readRolls(who string, bs position.BattleSystem, value uint8) ([]uint8, error) {
	n := 0
	switch bs.Kind {
	case position.Deterministic:
		return nil, nil
	case position.Test:
		n = 1
	case position.Original:
		n = 2
	case position.Dice:
		n = int(value)
	}
	if n == 0 {
		return nil, nil
	}

	for numErrs := 0; numErrs < 3; numErrs++ {
		fmt.Printf("  %s: enter %d random byte(s) > ", who, n)
		text, err := ui.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(text)
		if len(fields) != n {
			fmt.Printf("    * expected %d number(s), got %d\n", n, len(fields))
			continue
		}
		rolls := make([]uint8, n)
		failed := false
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				fmt.Printf("    * %q is not a byte\n", f)
				failed = true
				break
			}
			rolls[i] = uint8(v)
		}
		if failed {
			continue
		}
		return rolls, nil
	}
	return nil, errors.New(parsingErrorMsg)
}

func (ui *UI) PrintWinner(pos position.Position) {
	fmt.Println()
	blue := pos.CellsBlue.Count()
	red := pos.CellsRed.Count()
	switch {
	case blue == red:
		printCentered(lipgloss.NewStyle().
			Background(lipgloss.Color("13")).
			Foreground(lipgloss.Color("0")).
			Padding(1, 2).
			Render(fmt.Sprintf("*** DRAW: %d - %d ***", blue, red)))
	default:
		winner := position.Blue
		if red > blue {
			winner = position.Red
		}
		printCentered(fmt.Sprintf("%s *** %s WINS %d - %d!! *** %s",
			ui.colorStart(winner), strings.ToUpper(winner.String()), max(blue, red), min(blue, red), ui.colorEnd()))
	}
	fmt.Println()
}

// Print renders the board, both hands, and (for a pending decision) whose turn it is.
func (ui *UI) Print(pos position.Position) {
	fmt.Printf("\nMove #%d\n\n", pos.Depth)
	ui.PrintBoard(pos)
	fmt.Println()
	ui.PrintHands(pos)
	if pos.Status != position.GameOver {
		fmt.Printf("\n%s%s%s to act (status: %v)\n", ui.colorStart(pos.Turn), pos.Turn, ui.colorEnd(), pos.Status)
	}
}

func (ui *UI) PrintHands(pos position.Position) {
	for _, player := range []position.Player{position.Blue, position.Red} {
		hand := pos.HandBlue
		base := position.CardIdx(0)
		if player == position.Red {
			hand = pos.HandRed
			base = position.NumCardsPerHand
		}
		fmt.Printf("%s%s%s hand: ", ui.colorStart(player), player, ui.colorEnd())
		for i := uint8(0); i < position.NumCardsPerHand; i++ {
			if !hand.IsSet(i) {
				continue
			}
			card := ui.con.Cards[base+position.CardIdx(i)]
			fmt.Printf("[%d: A%d/P%d/M%d %s] ", i, card.Attack, card.PhysicalDefense, card.MagicalDefense, card.Type)
		}
		fmt.Println()
	}
}

func (ui *UI) PrintBoard(pos position.Position) {
	var rows []string
	for y := uint8(0); y < position.BoardSide; y++ {
		lines := make([]string, cellHeight)
		for x := uint8(0); x < position.BoardSide; x++ {
			cell := y*position.BoardSide + x
			block := ui.renderCell(pos, cell)
			for i := 0; i < cellHeight; i++ {
				sep := ""
				if x > 0 {
					sep = "|"
				}
				lines[i] += sep + block[i]
			}
		}
		rows = append(rows, strings.Join(lines, "\n"))
		if y < position.BoardSide-1 {
			rows = append(rows, strings.Repeat("-", (cellWidth+1)*position.BoardSide-1))
		}
	}
	printCentered(strings.Join(rows, "\n"))
}

// renderCell returns the cellHeight lines of one board square: a row of corner/up arrows, a
// middle row of left-arrow/content/right-arrow, and a row of corner/down arrows.
func (ui *UI) renderCell(pos position.Position, cell uint8) [cellHeight]string {
	c := pos.Board[cell]
	switch {
	case c.IsBlocked():
		return [cellHeight]string{
			centerString("", cellWidth),
			centerString("////", cellWidth),
			centerString("", cellWidth),
		}
	case c.IsEmpty():
		return [cellHeight]string{
			centerString("", cellWidth),
			centerString(fmt.Sprintf("%d", cell), cellWidth),
			centerString("", cellWidth),
		}
	}

	card := ui.con.Cards[c.CardIdx()]
	arrow := func(dir position.ArrowDir, glyph string) string {
		if card.Arrows.Has(dir) {
			return glyph
		}
		return " "
	}
	top := fmt.Sprintf("%s  %s  %s", arrow(position.UpLeft, "\\"), arrow(position.Up, "^"), arrow(position.UpRight, "/"))
	bot := fmt.Sprintf("%s  %s  %s", arrow(position.DownLeft, "/"), arrow(position.Down, "v"), arrow(position.DownRight, "\\"))

	label := fmt.Sprintf("%s%d", c.Owner().String()[:1], c.CardIdx())
	mid := fmt.Sprintf("%s %s %s", arrow(position.Left, "<"), centerString(label, 3), arrow(position.Right, ">"))

	style := lipgloss.NewStyle()
	if ui.color {
		style = style.Foreground(playerColor(c.Owner()))
	}
	return [cellHeight]string{
		centerString(top, cellWidth),
		centerString(style.Render(mid), cellWidth),
		centerString(bot, cellWidth),
	}
}

func playerColor(p position.Player) lipgloss.Color {
	if p == position.Blue {
		return lipgloss.Color("4")
	}
	return lipgloss.Color("1")
}

func (ui *UI) colorStart(p position.Player) string {
	if !ui.color {
		return ""
	}
	if p == position.Blue {
		return "\033[34;1m"
	}
	return "\033[31;1m"
}

func (ui *UI) colorEnd() string {
	if !ui.color {
		return ""
	}
	return "\033[0m"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
