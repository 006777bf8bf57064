package fusion

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/smart-exec/internal/model"
)

// group collects the signals agreeing on one direction.
type group struct {
	direction   model.Direction
	weight      float64
	score       float64
	strengths   []float64
	confidences []float64
}

// outcome is the result of fusing one batch of signals.
type outcome struct {
	direction  model.Direction
	strength   float64
	confidence float64
	conflict   bool
}

// fuse aggregates the signals into a single decision.
// It returns false if no direction carries any weight.
func fuse(signals []weighted, config Config) (outcome, bool) {
	groups := make(map[model.Direction]*group)
	var total float64
	for _, s := range signals {
		g, ok := groups[s.signal.Direction]
		if !ok {
			g = &group{direction: s.signal.Direction}
			groups[s.signal.Direction] = g
		}
		g.weight += s.weight
		g.score += s.signal.Strength * s.signal.Confidence * s.weight
		g.strengths = append(g.strengths, s.signal.Strength)
		g.confidences = append(g.confidences, s.signal.Confidence)
		total += s.weight
	}

	var winner *group
	for _, d := range model.Directions {
		g, ok := groups[d]
		if !ok || g.weight <= 0 {
			continue
		}
		g.score = g.score / g.weight
		if winner == nil ||
			g.score > winner.score ||
			(g.score == winner.score && g.weight > winner.weight) {
			winner = g
		}
	}
	if winner == nil {
		return outcome{}, false
	}

	confidence := config.Blend.Agreement*(winner.weight/total) +
		config.Blend.Strength*stat.Mean(winner.strengths, nil) +
		config.Blend.Confidence*stat.Mean(winner.confidences, nil)
	confidence = math.Min(1, math.Max(0, confidence))

	var conflict bool
	for d, g := range groups {
		if d == winner.direction || g.weight <= 0 {
			continue
		}
		if g.score > config.Materiality {
			conflict = true
			break
		}
	}
	if conflict {
		confidence *= config.Penalty
	}

	return outcome{
		direction:  winner.direction,
		strength:   winner.score,
		confidence: confidence,
		conflict:   conflict,
	}, true
}
