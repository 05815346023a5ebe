package agent

import (
	"fmt"
	"math"
	"sort"

	"github.com/dyluth/swarm/internal/frontier"
	"github.com/dyluth/swarm/pkg/grid"
)

// Scoring selects how frontier candidates are ranked.
type Scoring string

const (
	// ScoreFrontier favours candidates far from start, close to the agent
	// and with much left to see: dist_from_start * e^-hops * ln(discoverable).
	ScoreFrontier Scoring = "frontier"
	// ScoreNearest always takes the closest candidate.
	ScoreNearest Scoring = "nearest"
	// ScoreDiscovery favours the most unseen cells per step travelled.
	ScoreDiscovery Scoring = "discovery"
)

// ParseScoring validates a scoring name. The empty string means ScoreFrontier.
func ParseScoring(s string) (Scoring, error) {
	switch Scoring(s) {
	case "", ScoreFrontier:
		return ScoreFrontier, nil
	case ScoreNearest, ScoreDiscovery:
		return Scoring(s), nil
	}
	return "", fmt.Errorf("unknown scoring %q (want frontier, nearest or discovery)", s)
}

type scored struct {
	move  frontier.Move
	score float64
}

// pick ranks the candidates and returns one of the best RandomBest of them.
func (a *Agent) pick(moves []frontier.Move) frontier.Move {
	ranked := make([]scored, len(moves))
	for i, m := range moves {
		ranked[i] = scored{move: m, score: a.score(m)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := a.cfg.RandomBest
	if n > len(ranked) {
		n = len(ranked)
	}
	if n <= 1 {
		return ranked[0].move
	}
	return ranked[a.rng.Intn(n)].move
}

func (a *Agent) score(m frontier.Move) float64 {
	switch a.cfg.Scoring {
	case ScoreNearest:
		return -float64(m.Hops)
	case ScoreDiscovery:
		return float64(a.discoverable(m.Cell)) / float64(m.Hops+1)
	}

	discoverable := a.discoverable(m.Cell)
	if discoverable < 1 {
		discoverable = 1
	}
	return float64(a.distances[m.Cell]) * math.Exp(-float64(m.Hops)) * math.Log(float64(discoverable))
}

// discoverable counts the cells a scan from c could reveal, assuming
// unknown cells are open and stopping rays at known walls.
func (a *Agent) discoverable(c grid.Cell) int {
	count := 0
	a.geo.Visibility(c, a.cfg.SightRadius).Flood(func(v grid.Cell) bool {
		pathable, known := a.knowledge[v]
		if !known {
			count++
			return true
		}
		return pathable
	})
	return count
}
