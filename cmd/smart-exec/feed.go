package main

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/drakos74/smart-exec/internal/model"
)

// tick is one simulated market update.
type tick struct {
	instrument string
	price      float64
	bid        float64
	ask        float64
	volume     float64
}

// feed simulates a random walk of prices for a set of instruments.
type feed struct {
	instruments []string
	prices      map[string]float64
	moves       distuv.Normal
	volumes     distuv.Uniform
	spread      float64
}

func newFeed(instruments []string, start, sigma, spread float64, seed uint64) *feed {
	src := rand.NewSource(seed)
	prices := make(map[string]float64, len(instruments))
	ii := make([]string, len(instruments))
	for i, instrument := range instruments {
		ii[i] = model.Instrument(instrument)
		prices[ii[i]] = start
	}
	return &feed{
		instruments: ii,
		prices:      prices,
		moves:       distuv.Normal{Mu: 0, Sigma: sigma, Src: src},
		volumes:     distuv.Uniform{Min: 1000, Max: 10000, Src: src},
		spread:      spread,
	}
}

// next moves all instruments one step.
func (f *feed) next() []tick {
	ticks := make([]tick, len(f.instruments))
	for i, instrument := range f.instruments {
		price := f.prices[instrument] * math.Exp(f.moves.Rand())
		f.prices[instrument] = price
		ticks[i] = tick{
			instrument: instrument,
			price:      price,
			bid:        price * (1 - f.spread),
			ask:        price * (1 + f.spread),
			volume:     math.Round(f.volumes.Rand()),
		}
	}
	return ticks
}
