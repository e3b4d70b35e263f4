// Package search implements expectiminimax search with alpha-beta pruning over
// position.Position: AwaitingPlace nodes are decisions by the player to move, AwaitingPickBattle
// nodes are decisions by the attacker mid-cascade, and AwaitingResolveBattle nodes are chance
// forks weighted by constants.Matchup's win probabilities.
//
// Every node's value is, by construction, relative to that node's pos.Turn: for AwaitingPlace
// this is whoever is about to place; for AwaitingPickBattle/AwaitingResolveBattle it is the
// attacker whose cascade is still unfolding (Turn only changes once the cascade reaches
// endTurnOrGameOver). A child is only negated, and its alpha-beta window only swapped, when its
// Turn differs from its parent's -- which happens for a PlaceCard action or a battle resolution
// whose resulting cascade ends the turn, but never for a PickBattle action, since picking only
// starts a battle within the cascade in progress.
package search

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/tetracore/engine/internal/constants"
	"github.com/tetracore/engine/internal/generics"
	"github.com/tetracore/engine/internal/position"
	"github.com/tetracore/engine/internal/rules"
)

// Stats accumulates counters for one Search call, for benchmarking and tracing.
type Stats struct {
	Nodes  int
	Evals  int
	Prunes int
}

// Searcher runs expectiminimax search bound to one game's Constants.
type Searcher struct {
	con      *constants.Constants
	maxDepth uint8
	stats    Stats

	// placeBufs holds one preallocated action buffer per remaining-depth level, reused
	// across a Search call's lifetime so that enumerating placements at every node of every
	// depth doesn't allocate.
	placeBufs [][]position.Action
}

// New returns a Searcher for con, defaulting to con.MaxDepth plies of placement lookahead.
func New(con *constants.Constants) *Searcher {
	maxDepth := con.MaxDepth
	if maxDepth == 0 {
		maxDepth = 1
	}
	return &Searcher{con: con, maxDepth: maxDepth}
}

// WithMaxDepth overrides the configured search depth, in plies of card placement (cascades,
// picks and battle resolutions within a single placement's turn don't count as extra plies).
func (s *Searcher) WithMaxDepth(maxDepth uint8) *Searcher {
	if maxDepth == 0 {
		maxDepth = 1
	}
	s.maxDepth = maxDepth
	s.placeBufs = nil
	return s
}

// Stats returns the counters accumulated by the most recent Search call.
func (s *Searcher) Stats() Stats {
	return s.stats
}

// Search returns the best PlaceCard action at pos and its expectiminimax value, relative to
// pos.Turn. pos.Status must be AwaitingPlace. ctx, if non-nil, is checked between sibling
// actions at every node; on cancellation the search returns the best result found so far.
func (s *Searcher) Search(ctx context.Context, pos position.Position) (best position.Action, value float32, err error) {
	if pos.Status != position.AwaitingPlace {
		return position.Action{}, 0, errors.Errorf("search: position is not AwaitingPlace, got %v", pos.Status)
	}
	s.stats = Stats{}
	negInf, posInf := float32(math.Inf(-1)), float32(math.Inf(1))

	value, best, found := s.searchPlace(ctx, pos, s.maxDepth, negInf, posInf)
	if !found {
		return position.Action{}, 0, errors.New("search: no legal placements")
	}
	if klog.V(2).Enabled() {
		klog.Infof("search: depth=%d nodes=%d evals=%d prunes=%d value=%.3f best=%s",
			s.maxDepth, s.stats.Nodes, s.stats.Evals, s.stats.Prunes, value, best)
	}
	return best, value, nil
}

// SearchPick returns the attacker's best PickBattle choice at pos and its expectiminimax value,
// relative to pos.Turn. pos.Status must be AwaitingPickBattle: this is the same-perspective max
// layer mid a cascade, reached whenever the cascade classifier found two or more defenders and
// left the choice to the attacker, including when the attacker is this Searcher's own AI. It does
// not consume a placement ply, so it searches at the configured maxDepth exactly as a
// mid-placement pick would. ctx behaves as in Search.
func (s *Searcher) SearchPick(ctx context.Context, pos position.Position) (best position.Action, value float32, err error) {
	if pos.Status != position.AwaitingPickBattle {
		return position.Action{}, 0, errors.Errorf("search: position is not AwaitingPickBattle, got %v", pos.Status)
	}
	s.stats = Stats{}
	negInf, posInf := float32(math.Inf(-1)), float32(math.Inf(1))

	value, best, found := s.searchPick(ctx, pos, s.maxDepth, negInf, posInf)
	if !found {
		return position.Action{}, 0, errors.New("search: no legal pick choices")
	}
	if klog.V(2).Enabled() {
		klog.Infof("search: pick depth=%d nodes=%d evals=%d prunes=%d value=%.3f best=%s",
			s.maxDepth, s.stats.Nodes, s.stats.Evals, s.stats.Prunes, value, best)
	}
	return best, value, nil
}

// actionBuf returns the preallocated place-action buffer for the given remaining depth,
// allocating it (and the per-depth table, sized for the configured maxDepth) on first use.
func (s *Searcher) actionBuf(depthLeft uint8) []position.Action {
	if s.placeBufs == nil {
		s.placeBufs = make([][]position.Action, s.maxDepth+1)
	}
	if s.placeBufs[depthLeft] == nil {
		s.placeBufs[depthLeft] = make([]position.Action, 0, rules.MaxPlaceActions)
	}
	return s.placeBufs[depthLeft]
}

// value returns the expectiminimax value of pos, relative to pos.Turn, searching at most
// depthLeft further placement plies.
func (s *Searcher) value(ctx context.Context, pos position.Position, depthLeft uint8, alpha, beta float32) float32 {
	s.stats.Nodes++
	switch pos.Status {
	case position.GameOver:
		s.stats.Evals++
		return pos.Evaluate()

	case position.AwaitingPlace:
		if depthLeft == 0 || (ctx != nil && ctx.Err() != nil) {
			s.stats.Evals++
			return pos.Evaluate()
		}
		v, _, found := s.searchPlace(ctx, pos, depthLeft, alpha, beta)
		if !found {
			// Hand is non-empty by construction here (IsGameOver would have caught an
			// empty hand), so every board cell must be occupied: a full board with cards
			// still in hand can't happen under this spec's rules, but fall back to the
			// heuristic rather than panic on a position we didn't anticipate.
			s.stats.Evals++
			return pos.Evaluate()
		}
		return v

	case position.AwaitingPickBattle:
		v, _, found := s.searchPick(ctx, pos, depthLeft, alpha, beta)
		if !found {
			// EnumeratePickActions is only empty if the cascade classifier reached
			// AwaitingPickBattle with no defenders, which it never does by construction.
			s.stats.Evals++
			return pos.Evaluate()
		}
		return v

	case position.AwaitingResolveBattle:
		return s.chance(ctx, pos, depthLeft, alpha, beta)

	default:
		panic("search: unknown position status")
	}
}

// searchPlace enumerates every legal placement at pos and returns the best child's value, the
// action that produced it, and whether any legal action existed at all.
//
// Children are visited in a shallow-eval order purely to improve alpha-beta pruning; that order
// never decides which action wins a tie. The tie-break is first-seen/insertion order from the
// action enumerator: of any actions sharing the best value, the one that EnumeratePlaceActions
// produced earliest wins, regardless of the order this loop happened to visit it in. That matches
// the canonical `for action in actions` loop this search is modeled on, which has no presort step
// at all and breaks ties with a plain strict `>`.
func (s *Searcher) searchPlace(ctx context.Context, pos position.Position, depthLeft uint8, alpha, beta float32) (value float32, bestAction position.Action, found bool) {
	buf := s.actionBuf(depthLeft)
	actions := rules.EnumeratePlaceActions(&pos, buf)
	if len(actions) == 0 {
		return 0, position.Action{}, false
	}

	children := make([]position.Position, len(actions))
	shallow := make([]float32, len(actions))
	for i, a := range actions {
		children[i] = rules.ApplyAction(s.con, pos, a)
		shallow[i] = children[i].Evaluate()
		if children[i].Turn != pos.Turn {
			shallow[i] = -shallow[i]
		}
	}
	order := generics.SliceOrdering(shallow, true)

	best := float32(math.Inf(-1))
	bestIdx := -1
	for _, idx := range order {
		if bestIdx >= 0 && ctx != nil && ctx.Err() != nil {
			break
		}
		v := s.valueFromChild(ctx, children[idx], pos.Turn, depthLeft-1, alpha, beta)
		if v > best || (v == best && idx < bestIdx) {
			best = v
			bestIdx = idx
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			s.stats.Prunes++
			break
		}
	}
	return best, actions[bestIdx], true
}

// searchPick enumerates the pending defenders at an AwaitingPickBattle node and returns the
// attacker's best choice's value, the action that produced it, and whether any choice existed at
// all. This does not consume a ply: the attacker is still mid-cascade from the placement that
// triggered it. Ties are broken by the same first-seen/enumeration-order rule as searchPlace.
func (s *Searcher) searchPick(ctx context.Context, pos position.Position, depthLeft uint8, alpha, beta float32) (value float32, bestAction position.Action, found bool) {
	actions := rules.EnumeratePickActions(&pos)
	if len(actions) == 0 {
		return 0, position.Action{}, false
	}
	best := float32(math.Inf(-1))
	bestIdx := 0
	for idx, a := range actions {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		child := rules.ApplyAction(s.con, pos, a)
		v := s.valueFromChild(ctx, child, pos.Turn, depthLeft, alpha, beta)
		if v > best {
			best = v
			bestIdx = idx
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			s.stats.Prunes++
			break
		}
	}
	return best, actions[bestIdx], true
}

// chance evaluates an AwaitingResolveBattle node as the probability-weighted sum of its one or
// two outcomes. A genuine two-way fork resets the alpha-beta window to (-inf, +inf): neither
// side chose this branch, so a window narrowed by a sibling's pruning elsewhere in the tree
// doesn't apply to it.
func (s *Searcher) chance(ctx context.Context, pos position.Position, depthLeft uint8, alpha, beta float32) float32 {
	resolutions := rules.EnumerateResolutions(s.con, &pos)
	childAlpha, childBeta := alpha, beta
	if len(resolutions) == 2 {
		childAlpha, childBeta = float32(math.Inf(-1)), float32(math.Inf(1))
	}

	var expected float32
	for _, r := range resolutions {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		child := rules.ApplyResolution(s.con, pos, r)
		v := s.valueFromChild(ctx, child, pos.Turn, depthLeft, childAlpha, childBeta)
		expected += r.Probability * v
	}
	return expected
}

// valueFromChild converts child's Turn-relative value into parentTurn's perspective: unchanged,
// with the same alpha-beta window, if child.Turn == parentTurn (the cascade hasn't handed the
// turn to the other player yet); negated, with the window swapped and inverted, otherwise.
func (s *Searcher) valueFromChild(ctx context.Context, child position.Position, parentTurn position.Player, depthLeft uint8, alpha, beta float32) float32 {
	if child.Turn == parentTurn {
		return s.value(ctx, child, depthLeft, alpha, beta)
	}
	return -s.value(ctx, child, depthLeft, -beta, -alpha)
}
