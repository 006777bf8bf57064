package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/smart-exec/internal/buffer"
	"github.com/drakos74/smart-exec/internal/metrics"
	"github.com/drakos74/smart-exec/internal/model"
	cointime "github.com/drakos74/smart-exec/internal/time"
)

var (
	ErrMissingInstrument = errors.New("missing instrument")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidVolume     = errors.New("invalid volume")
)

// Config defines the cache retention.
type Config struct {
	TTL           time.Duration `yaml:"ttl" json:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval" validate:"gt=0"`
	History       int           `yaml:"history" json:"history" validate:"gt=0"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:           5 * time.Minute,
		SweepInterval: 5 * time.Minute,
		History:       100,
	}
}

// Cache holds the latest market snapshot per instrument.
// It is the only authoritative source of price state.
type Cache struct {
	config    Config
	buffer    float64
	lock      *sync.RWMutex
	snapshots map[string]model.Snapshot
	history   map[string]*buffer.Buffer
	now       func() time.Time
}

// NewCache creates a new market data cache.
// priceBuffer is the half spread used to synthesize a missing bid or ask.
func NewCache(config Config, priceBuffer float64) *Cache {
	return &Cache{
		config:    config,
		buffer:    priceBuffer,
		lock:      new(sync.RWMutex),
		snapshots: make(map[string]model.Snapshot),
		history:   make(map[string]*buffer.Buffer),
		now:       time.Now,
	}
}

// Update overwrites the snapshot of the instrument and appends the price to its history.
// A zero bid or ask is derived from the price.
func (c *Cache) Update(instrument string, price, bid, ask, volume float64) (model.Snapshot, error) {
	instrument = model.Instrument(instrument)
	if instrument == "" {
		return model.Snapshot{}, ErrMissingInstrument
	}
	if !model.Positive(price) {
		return model.Snapshot{}, fmt.Errorf("%s at %f: %w", instrument, price, ErrInvalidPrice)
	}
	if !model.Finite(bid) || !model.Finite(ask) {
		return model.Snapshot{}, fmt.Errorf("%s with bid %f and ask %f: %w", instrument, bid, ask, ErrInvalidPrice)
	}
	if !model.Finite(volume) || volume < 0 {
		return model.Snapshot{}, fmt.Errorf("%s with volume %f: %w", instrument, volume, ErrInvalidVolume)
	}
	if bid <= 0 {
		bid = price * (1 - c.buffer)
	}
	if ask <= 0 {
		ask = price * (1 + c.buffer)
	}
	snapshot := model.Snapshot{
		Instrument: instrument,
		Price:      price,
		Bid:        bid,
		Ask:        ask,
		Volume:     volume,
		Time:       c.now(),
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	c.snapshots[instrument] = snapshot
	h, ok := c.history[instrument]
	if !ok {
		h = buffer.NewBuffer(c.config.History)
		c.history[instrument] = h
	}
	h.Push(price)
	return snapshot, nil
}

// Snapshot returns the latest snapshot for the instrument.
func (c *Cache) Snapshot(instrument string) (model.Snapshot, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	s, ok := c.snapshots[model.Instrument(instrument)]
	return s, ok
}

// Prices returns the rolling price history of the instrument, oldest first.
func (c *Cache) Prices(instrument string) []float64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if h, ok := c.history[model.Instrument(instrument)]; ok {
		return h.Get()
	}
	return []float64{}
}

// Instruments returns the instruments with a live snapshot.
func (c *Cache) Instruments() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	ii := make([]string, 0, len(c.snapshots))
	for i := range c.snapshots {
		ii = append(ii, i)
	}
	sort.Strings(ii)
	return ii
}

// Sweep evicts the snapshots that have not been updated within the ttl.
// The price history is kept.
func (c *Cache) Sweep(now time.Time) []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	evicted := make([]string, 0)
	for instrument, s := range c.snapshots {
		if now.Sub(s.Time) > c.config.TTL {
			delete(c.snapshots, instrument)
			evicted = append(evicted, instrument)
			metrics.Observer.Evict()
			log.Warn().
				Str("instrument", instrument).
				Time("updated", s.Time).
				Dur("ttl", c.config.TTL).
				Msg("evicted stale market data")
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Run sweeps stale snapshots on every interval until the context is done.
func (c *Cache) Run(ctx context.Context) {
	cointime.Every(ctx, "market-sweep", c.config.SweepInterval, func(time.Time) error {
		c.Sweep(c.now())
		return nil
	})
}
