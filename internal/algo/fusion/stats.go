package fusion

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/smart-exec/internal/buffer"
)

// Statistics summarises the fusion passes.
type Statistics struct {
	SignalsProcessed uint64        `json:"signals_processed"`
	Conflicts        uint64        `json:"signal_conflicts"`
	ConflictRate     float64       `json:"conflict_rate"`
	Runtime          time.Duration `json:"runtime"`
	SignalsPerSecond float64       `json:"signals_per_second"`
	AvgFusionTime    time.Duration `json:"avg_fusion_time"`
	MinFusionTime    time.Duration `json:"min_fusion_time"`
	MaxFusionTime    time.Duration `json:"max_fusion_time"`
	FusionTimeP95    time.Duration `json:"fusion_time_p95"`
}

type stats struct {
	lock      *sync.Mutex
	start     time.Time
	processed uint64
	conflicts uint64
	times     *buffer.Ring[time.Duration]
}

func newStats(window int) *stats {
	return &stats{
		lock:  new(sync.Mutex),
		start: time.Now(),
		times: buffer.NewRing[time.Duration](window),
	}
}

func (s *stats) add(d time.Duration, conflict bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.processed++
	if conflict {
		s.conflicts++
	}
	s.times.Push(d)
}

func (s *stats) snapshot() Statistics {
	s.lock.Lock()
	times := s.times.Get()
	statistics := Statistics{
		SignalsProcessed: s.processed,
		Conflicts:        s.conflicts,
		Runtime:          time.Since(s.start),
	}
	s.lock.Unlock()

	if statistics.SignalsProcessed > 0 {
		statistics.ConflictRate = float64(statistics.Conflicts) / float64(statistics.SignalsProcessed)
	}
	if secs := statistics.Runtime.Seconds(); secs > 0 {
		statistics.SignalsPerSecond = float64(statistics.SignalsProcessed) / secs
	}
	if len(times) == 0 {
		return statistics
	}

	vv := make([]float64, len(times))
	for i, t := range times {
		vv[i] = float64(t)
	}
	sort.Float64s(vv)
	statistics.AvgFusionTime = time.Duration(stat.Mean(vv, nil))
	statistics.MinFusionTime = time.Duration(floats.Min(vv))
	statistics.MaxFusionTime = time.Duration(floats.Max(vv))
	statistics.FusionTimeP95 = time.Duration(stat.Quantile(0.95, stat.Empirical, vv, nil))
	return statistics
}
