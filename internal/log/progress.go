// Package log provides step-level progress logging for the optimization
// pipeline. Each run creates one StepLogger; stages report start and
// completion and the logger tracks durations against stage budgets.
package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// StepLogger reports progress through a named sequence of pipeline stages.
type StepLogger struct {
	mu       sync.Mutex
	pipeline string
	steps    []string
	started  map[string]time.Time
	finished map[string]time.Duration
	runStart time.Time
}

// NewStepLogger creates a logger for one pipeline run.
func NewStepLogger(pipeline string, steps []string) *StepLogger {
	return &StepLogger{
		pipeline: pipeline,
		steps:    append([]string(nil), steps...),
		started:  make(map[string]time.Time),
		finished: make(map[string]time.Duration),
		runStart: time.Now(),
	}
}

// StartStep marks a stage as begun.
func (sl *StepLogger) StartStep(name string) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	sl.started[name] = time.Now()
	position := sl.position(name)
	sl.mu.Unlock()

	log.Info().
		Str("pipeline", sl.pipeline).
		Str("step", name).
		Int("position", position).
		Int("total", len(sl.steps)).
		Msg("stage started")
}

// CompleteStep marks a stage as finished and logs its duration.
func (sl *StepLogger) CompleteStep(name string, degraded bool) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	start, ok := sl.started[name]
	var elapsed time.Duration
	if ok {
		elapsed = time.Since(start)
		sl.finished[name] = elapsed
	}
	sl.mu.Unlock()

	evt := log.Info()
	if degraded {
		evt = log.Warn().Bool("degraded", true)
	}
	evt.
		Str("pipeline", sl.pipeline).
		Str("step", name).
		Dur("elapsed", elapsed).
		Msg("stage complete")
}

// FailStep logs a stage failure without stopping the pipeline clock.
func (sl *StepLogger) FailStep(name string, err error) {
	if sl == nil {
		return
	}
	log.Error().
		Str("pipeline", sl.pipeline).
		Str("step", name).
		Err(err).
		Msg("stage failed")
}

// Summary logs total elapsed time and per-step durations.
func (sl *StepLogger) Summary() {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	total := time.Since(sl.runStart)
	durations := make(map[string]time.Duration, len(sl.finished))
	for k, v := range sl.finished {
		durations[k] = v
	}
	sl.mu.Unlock()

	evt := log.Info().Str("pipeline", sl.pipeline).Dur("total", total)
	for _, step := range sl.steps {
		if d, ok := durations[step]; ok {
			evt = evt.Dur(step, d)
		}
	}
	evt.Msg("pipeline summary")
}

func (sl *StepLogger) position(name string) int {
	for i, s := range sl.steps {
		if s == name {
			return i + 1
		}
	}
	return 0
}
