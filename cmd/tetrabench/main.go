// Command tetrabench runs the search against a fixed deck across many self-play matches, in
// parallel, reporting nodes/sec and node/prune counts. It exists to exercise
// internal/profilers under sustained search load, not to judge play strength.
package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/janpfeifer/must"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/profilers"
	"github.com/tetracore/engine/internal/rules"
	"github.com/tetracore/engine/internal/search"
	"github.com/tetracore/engine/internal/ui/spinning"
)

var (
	flagNumMatches  = flag.Int("num_matches", 50, "Number of self-play matches to run.")
	flagMaxDepth    = flag.Int("max_depth", 4, "Search depth (plies of placement lookahead).")
	flagParallelism = flag.Int("parallelism", 0, "If > 0, ignore GOMAXPROCS and run this many matches at once.")
	flagProbCutoff  = flag.Float64("prob_cutoff", 0.05, "Win-probability snapping cutoff, see constants.Config.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 5*time.Second)
	defer cancel()
	profilers.Setup(ctx)
	defer profilers.OnQuit()

	con := must.M1(constants.New(constants.Setup{
		BattleSystem:   position.BattleSystem{Kind: position.Dice, DiceSides: 6},
		HandBlue:       benchHand(0),
		HandRed:        benchHand(1),
		StartingPlayer: position.Blue,
	}, constants.Config{
		Player:     position.Blue,
		MaxDepth:   uint8(*flagMaxDepth),
		ProbCutoff: float32(*flagProbCutoff),
	}))

	must.M(runBench(ctx, con))
}

type totals struct {
	mu                  sync.Mutex
	matches             int
	nodes, evals, prune int
	start               time.Time
}

func (t *totals) add(s search.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.matches++
	t.nodes += s.Nodes
	t.evals += s.Evals
	t.prune += s.Prunes
}

func (t *totals) String() string {
	elapsed := time.Since(t.start)
	nodesPerSec := float64(t.nodes) / elapsed.Seconds()
	return fmt.Sprintf("matches=%d nodes=%d evals=%d prunes=%d nodes/sec=%.0f elapsed=%s",
		t.matches, t.nodes, t.evals, t.prune, nodesPerSec, elapsed)
}

func runBench(ctx context.Context, con *constants.Constants) error {
	t := &totals{start: time.Now()}
	var wg errgroup.Group
	wg.SetLimit(parallelism())

	for matchIdx := range *flagNumMatches {
		wg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			s := search.New(con)
			if err := playOneMatch(ctx, s, con); err != nil {
				return err
			}
			t.add(s.Stats())
			klog.V(1).Infof("tetrabench: match %d done (%s)", matchIdx, t)
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return err
	}
	fmt.Println(t.String())
	return nil
}

// playOneMatch drives a single self-play game to completion purely through the search and
// rules packages, bypassing the tracker/CLI entirely: every battle resolution takes the
// higher-probability outcome rather than sampling, since this is a throughput benchmark, not a
// realistic playout.
func playOneMatch(ctx context.Context, s *search.Searcher, con *constants.Constants) error {
	pos := initialPosition(con)
	for pos.Status != position.GameOver {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch pos.Status {
		case position.AwaitingPlace:
			best, _, err := s.Search(ctx, pos)
			if err != nil {
				return err
			}
			pos = rules.ApplyAction(con, pos, best)
		case position.AwaitingPickBattle:
			actions := rules.EnumeratePickActions(&pos)
			pos = rules.ApplyAction(con, pos, actions[0])
		case position.AwaitingResolveBattle:
			resolutions := rules.EnumerateResolutions(con, &pos)
			best := resolutions[0]
			for _, r := range resolutions {
				if r.Probability > best.Probability {
					best = r
				}
			}
			pos = rules.ApplyResolution(con, pos, best)
		}
	}
	return nil
}

func initialPosition(con *constants.Constants) position.Position {
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
	return pos
}

func parallelism() int {
	if *flagParallelism > 0 {
		return *flagParallelism
	}
	return runtime.GOMAXPROCS(0)
}

func benchHand(side int) [position.NumCardsPerHand]position.Card {
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
