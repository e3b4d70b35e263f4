// Command tetracore runs one demonstrative match of the engine: either two humans at the same
// terminal (--hotseat), or a human against the internal/search AI.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"k8s.io/klog/v2"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/parameters"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/profilers"
	"github.com/tetracore/engine/internal/search"
	"github.com/tetracore/engine/internal/tracker"
	"github.com/tetracore/engine/internal/ui/cli"
	"github.com/tetracore/engine/internal/ui/spinning"
)

var (
	flagHotseat = flag.Bool("hotseat", false, "Hotseat match: human vs human.")
	flagFirst   = flag.String("first", "", `Who plays Blue first: "human" or "ai". Default is random.`)
	flagColor   = flag.Bool("color", true, "Colorize the board and hands.")
	flagAI      = flag.String("ai", "maxDepth=4,probCutoff=0.05,battleSystem=dice,diceSides=6",
		"AI search configuration, see internal/parameters.NewFromConfigString.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 3*time.Second)
	defer cancel()
	profilers.Setup(ctx)
	defer profilers.OnQuit()

	aiPlayer := position.Player(255) // sentinel: no AI, pure hotseat.
	if !*flagHotseat {
		aiPlayer = pickAIPlayer()
	}

	con, err := buildConstants(aiPlayer)
	if err != nil {
		klog.Exitf("tetracore: %+v", err)
	}
	// From here on, con.Player -- not the local aiPlayer above -- is this match's source of
	// truth for which side the search plays; it's what a saved/replayed Constants would carry.
	aiPlayer = con.Player

	tr := tracker.New(con)
	ui := cli.New(con, *flagColor)
	s := search.New(con)

	for tr.Position().Status != position.GameOver {
		pos := tr.Position()
		switch {
		case pos.Status == position.AwaitingPlace && pos.Turn == aiPlayer:
			playAIPlace(ctx, s, tr)
		case pos.Status == position.AwaitingPickBattle && pos.Turn == aiPlayer:
			playAIPick(ctx, s, tr)
		default:
			// Battle resolution always goes through the UI, even on the AI's turn: the AI
			// doesn't sample dice, it only chooses among placements and pending defenders.
			if err := ui.Step(tr); err != nil {
				klog.Exitf("tetracore: %+v", err)
			}
		}
	}
	ui.Print(tr.Position())
	ui.PrintWinner(tr.Position())
}

// playAIPlace drives the tracker through one placement using the AI's chosen action.
func playAIPlace(ctx context.Context, s *search.Searcher, tr *tracker.Tracker) {
	turn := tr.Position().Turn
	fmt.Print("\nAI thinking ")
	spin := spinning.New(ctx)
	start := time.Now()
	best, value, err := s.Search(ctx, tr.Position())
	spin.Done()
	if err != nil {
		klog.Exitf("tetracore: AI search failed: %+v", err)
	}
	klog.V(1).Infof("tetracore: AI chose %s (value=%.3f, %s, %+v)", best, value, time.Since(start), s.Stats())
	fmt.Printf("\nAI plays %s (confidence %.2f)\n", best, search.Squash(value))
	tr.PlaceCard(turn, best.Card, best.Cell)
}

// playAIPick drives the tracker through one mid-cascade defender choice using the AI's own
// search, reached when the AI's placement left two or more simultaneous defenders pending.
func playAIPick(ctx context.Context, s *search.Searcher, tr *tracker.Tracker) {
	turn := tr.Position().Turn
	fmt.Print("\nAI picking a defender ")
	spin := spinning.New(ctx)
	start := time.Now()
	best, value, err := s.SearchPick(ctx, tr.Position())
	spin.Done()
	if err != nil {
		klog.Exitf("tetracore: AI pick search failed: %+v", err)
	}
	klog.V(1).Infof("tetracore: AI picks %s (value=%.3f, %s, %+v)", best, value, time.Since(start), s.Stats())
	fmt.Printf("\nAI picks cell %d (confidence %.2f)\n", best.Cell, search.Squash(value))
	tr.PickBattle(turn, best.Cell)
}

func pickAIPlayer() position.Player {
	switch *flagFirst {
	case "human":
		return position.Red
	case "ai":
		return position.Blue
	case "":
		if rand.IntN(2) == 0 {
			return position.Blue
		}
		return position.Red
	default:
		klog.Exitf("tetracore: invalid --first=%q, want \"human\" or \"ai\"", *flagFirst)
		return position.Blue
	}
}

// buildConstants assembles one demo game's Setup (a fixed sample deck) from --ai's
// battleSystem/diceSides/maxDepth/probCutoff parameters, with aiPlayer recorded as the Config's
// Player -- which side, if any, this match's search plays.
func buildConstants(aiPlayer position.Player) (*constants.Constants, error) {
	params := parameters.NewFromConfigString(*flagAI)
	maxDepth, err := parameters.PopParamOr(params, "maxDepth", 4)
	if err != nil {
		return nil, err
	}
	probCutoff, err := parameters.PopParamOr(params, "probCutoff", float32(0.05))
	if err != nil {
		return nil, err
	}
	battleSystemName, err := parameters.PopParamOr(params, "battleSystem", "dice")
	if err != nil {
		return nil, err
	}
	diceSides, err := parameters.PopParamOr(params, "diceSides", 6)
	if err != nil {
		return nil, err
	}

	var bs position.BattleSystem
	switch battleSystemName {
	case "deterministic":
		bs = position.BattleSystem{Kind: position.Deterministic}
	case "original":
		bs = position.BattleSystem{Kind: position.Original}
	case "dice":
		bs = position.BattleSystem{Kind: position.Dice, DiceSides: uint8(diceSides)}
	default:
		bs = position.BattleSystem{Kind: position.Dice, DiceSides: uint8(diceSides)}
	}

	return constants.New(constants.Setup{
		BattleSystem:   bs,
		HandBlue:       demoHand(0),
		HandRed:        demoHand(1),
		StartingPlayer: position.Blue,
	}, constants.Config{
		Player:     aiPlayer,
		MaxDepth:   uint8(maxDepth),
		ProbCutoff: probCutoff,
	})
}

// demoHand returns one of two fixed, reasonably balanced sample decks, side 0 for Blue and 1
// for Red, so a fresh checkout has something playable without external card data.
func demoHand(side int) [position.NumCardsPerHand]position.Card {
	decks := [2][position.NumCardsPerHand]position.Card{
		{
			{Attack: 8, PhysicalDefense: 2, MagicalDefense: 4, Type: position.Physical, Arrows: position.Arrows(position.Up) | position.Arrows(position.Right)},
			{Attack: 5, PhysicalDefense: 6, MagicalDefense: 3, Type: position.Magical, Arrows: position.Arrows(position.Down) | position.Arrows(position.Left)},
			{Attack: 9, PhysicalDefense: 1, MagicalDefense: 2, Type: position.Exploit, Arrows: position.Arrows(position.UpRight) | position.Arrows(position.DownRight)},
			{Attack: 4, PhysicalDefense: 7, MagicalDefense: 6, Type: position.Assault, Arrows: position.Arrows(position.Up) | position.Arrows(position.Down) | position.Arrows(position.Left) | position.Arrows(position.Right)},
			{Attack: 6, PhysicalDefense: 4, MagicalDefense: 5, Type: position.Physical, Arrows: position.Arrows(position.UpLeft) | position.Arrows(position.DownLeft)},
		},
		{
			{Attack: 7, PhysicalDefense: 3, MagicalDefense: 5, Type: position.Magical, Arrows: position.Arrows(position.Down) | position.Arrows(position.Left)},
			{Attack: 6, PhysicalDefense: 5, MagicalDefense: 4, Type: position.Physical, Arrows: position.Arrows(position.Up) | position.Arrows(position.Right)},
			{Attack: 3, PhysicalDefense: 8, MagicalDefense: 2, Type: position.Exploit, Arrows: position.Arrows(position.UpLeft) | position.Arrows(position.DownLeft)},
			{Attack: 5, PhysicalDefense: 5, MagicalDefense: 5, Type: position.Assault, Arrows: position.Arrows(position.UpRight) | position.Arrows(position.DownRight)},
			{Attack: 9, PhysicalDefense: 2, MagicalDefense: 3, Type: position.Physical, Arrows: position.Arrows(position.Down) | position.Arrows(position.Up)},
		},
	}
	return decks[side]
}
