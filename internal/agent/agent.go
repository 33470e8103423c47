// Package agent runs the simulated collection agent: it owns the source roster,
// agent state, price history, and decision log, and mutates them on three
// periodic tasks (collection cycle, staleness sweep, countdown display).
package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/rewired-gh/silveragent/internal/logger"
	"github.com/rewired-gh/silveragent/internal/models"
	"github.com/rewired-gh/silveragent/internal/policy"
	"github.com/rewired-gh/silveragent/internal/pricing"
)

const (
	// MaxDecisions caps the in-memory decision log.
	MaxDecisions = 50
	// MaxPriceHistory caps the exposed price history.
	MaxPriceHistory = 60
	maxPriceWindow  = 100

	initialCountdown = 15
)

// Config holds the agent's tunables.
type Config struct {
	Mode              models.Mode
	TotalBudget       int
	CountdownInterval time.Duration
	StalenessInterval time.Duration
}

// DefaultConfig returns adaptive mode, a 1000 call budget, a 1s countdown and a 2s sweep.
func DefaultConfig() Config {
	return Config{
		Mode:              models.ModeAdaptive,
		TotalBudget:       1000,
		CountdownInterval: time.Second,
		StalenessInterval: 2 * time.Second,
	}
}

// DecisionSink receives every decision after the mutation that produced it
// has been applied. Implementations must not block.
type DecisionSink interface {
	Record(d models.AgentDecision) error
}

// Snapshot is a read-only copy of the agent's state. Decisions are newest first.
type Snapshot struct {
	Sources      []models.DataSource    `json:"sources"`
	Agent        models.AgentState      `json:"agent"`
	PriceHistory []models.PriceData     `json:"priceHistory"`
	Decisions    []models.AgentDecision `json:"decisions"`
	CurrentPrice float64                `json:"currentPrice"`
}

// CycleResult summarises one collection cycle.
type CycleResult struct {
	Price        float64
	Volatility   models.Volatility
	Collected    int
	Skipped      int
	NextInterval time.Duration
}

// Agent is the state container and scheduler. All mutation goes through its
// methods; readers use Snapshot.
type Agent struct {
	mu sync.RWMutex

	config Config
	clock  clock.Clock
	rng    pricing.Rand
	sinks  []DecisionSink
	newID  func() string

	sources      []models.DataSource
	state        models.AgentState
	prices       []float64
	history      []models.PriceData
	decisions    []models.AgentDecision
	currentPrice float64
}

// Option customises an Agent.
type Option func(*Agent)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(a *Agent) { a.clock = c }
}

// WithRand replaces the random source.
func WithRand(r pricing.Rand) Option {
	return func(a *Agent) { a.rng = r }
}

// WithSinks registers decision sinks.
func WithSinks(sinks ...DecisionSink) Option {
	return func(a *Agent) { a.sinks = append(a.sinks, sinks...) }
}

// WithSources replaces the initial roster. Priority scores are recomputed.
func WithSources(sources []models.DataSource) Option {
	return func(a *Agent) {
		a.sources = make([]models.DataSource, len(sources))
		copy(a.sources, sources)
		for i := range a.sources {
			a.sources[i].Recompute()
		}
	}
}

// New creates an agent seeded with the initial roster and starting price.
func New(config Config, opts ...Option) *Agent {
	a := &Agent{
		config: config,
		clock:  clock.New(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = pricing.NewRand(uint64(a.clock.Now().UnixNano()))
	}
	if a.sources == nil {
		a.sources = InitialSources(a.clock.Now())
	}

	a.state = models.AgentState{
		Mode:             config.Mode,
		IsActive:         true,
		Volatility:       models.VolatilityMedium,
		NextCollectionIn: initialCountdown,
		TotalBudget:      config.TotalBudget,
	}
	a.currentPrice = pricing.StartPrice
	a.prices = []float64{pricing.StartPrice}
	return a
}

// RunCycle performs one complete collection cycle. The whole cycle is applied
// under the write lock so readers never observe a partial cycle.
func (a *Agent) RunCycle() CycleResult {
	start := a.clock.Now()
	logger.Debug("Starting collection cycle")

	a.mu.Lock()
	now := a.clock.Now()
	var pending []models.AgentDecision

	price := pricing.NextPrice(a.currentPrice, a.rng)
	prediction := pricing.Predict(price, a.rng)
	a.currentPrice = price
	a.prices = appendCapped(a.prices, price, maxPriceWindow)
	a.history = appendCapped(a.history, models.PriceData{
		Timestamp:      now,
		Price:          price,
		Predicted:      &prediction.Predicted,
		ConfidenceLow:  &prediction.Low,
		ConfidenceHigh: &prediction.High,
	}, MaxPriceHistory)

	volatility := pricing.ClassifyVolatility(a.prices)
	a.state.Volatility = volatility

	// Rules see the state as it was when the cycle began.
	preCycle := a.state
	collected, skipped := 0, 0
	for i := range a.sources {
		src := &a.sources[i]
		decision := policy.ShouldSkip(*src, preCycle, now)
		if decision.Skip {
			skipped++
			src.MarkSkipped(decision.Reason)
			pending = append(pending, a.appendDecision(now, models.AgentDecision{
				Type:           models.DecisionSkip,
				SourceID:       src.ID,
				SourceName:     src.Name,
				Reason:         "Skipped: " + decision.Reason,
				ResourcesSaved: 1,
			}))
			logger.Debug("Skipped %s: %s", src.ID, decision.Reason)
			continue
		}

		collected++
		priorBefore := src.PriorityScore
		quality := math.Min(100, math.Max(50, src.QualityScore+pricing.Uniform(a.rng, -2, 2)))
		src.MarkCollected(now, quality)
		pending = append(pending, a.appendDecision(now, models.AgentDecision{
			Type:       models.DecisionCollect,
			SourceID:   src.ID,
			SourceName: src.Name,
			Reason:     fmt.Sprintf("Collected data (quality: %.0f%%)", quality),
			Details:    fmt.Sprintf("Priority score: %.1f", priorBefore),
		}))
		logger.Debug("Collected %s: quality=%.1f priority=%.1f", src.ID, quality, src.PriorityScore)
	}

	allocations := policy.AllocateBudget(a.sources, a.state.TotalBudget)
	for i := range a.sources {
		if calls, ok := allocations[a.sources[i].ID]; ok {
			a.sources[i].CallsAllocated = calls
		}
	}

	a.state.BudgetUsed += collected
	a.state.ResourcesSaved += skipped
	a.state.CollectionsToday += collected
	a.state.SkippedToday += skipped

	if skipped > 0 {
		pending = append(pending, a.appendDecision(now, models.AgentDecision{
			Type:           models.DecisionBudget,
			Reason:         fmt.Sprintf("Cycle complete: %d collected, %d skipped", collected, skipped),
			Details:        fmt.Sprintf("Total resources saved this session: %d", a.state.ResourcesSaved),
			ResourcesSaved: skipped,
		}))
	}

	interval := policy.CollectionInterval(volatility, a.rng)
	a.state.NextCollectionIn = int(math.Round(interval.Seconds()))
	a.mu.Unlock()

	a.dispatch(pending)

	logger.Info("Collection cycle completed in %v: price=%.2f volatility=%s collected=%d skipped=%d next=%v",
		a.clock.Since(start), price, volatility, collected, skipped, interval.Round(time.Millisecond))

	return CycleResult{
		Price:        price,
		Volatility:   volatility,
		Collected:    collected,
		Skipped:      skipped,
		NextInterval: interval,
	}
}

// SweepStaleness re-derives freshness from age and flips active/stale.
// A staleness decision is emitted only on the active to stale transition.
// It returns the number of sources that became stale.
func (a *Agent) SweepStaleness() int {
	a.mu.Lock()
	now := a.clock.Now()
	var pending []models.AgentDecision
	for i := range a.sources {
		src := &a.sources[i]
		age := src.Age(now)
		stale := policy.IsStale(age)

		if stale && src.Status == models.StatusActive {
			pending = append(pending, a.appendDecision(now, models.AgentDecision{
				Type:       models.DecisionStaleness,
				SourceID:   src.ID,
				SourceName: src.Name,
				Reason: fmt.Sprintf("Data became stale (%.0fs > %.0fs threshold)",
					math.Round(age.Seconds()), policy.StalenessThreshold.Seconds()),
				Details: "Queuing automatic refresh",
			}))
		}

		switch {
		case src.Status == models.StatusOffline:
		case stale:
			src.Status = models.StatusStale
		default:
			src.Status = models.StatusActive
		}
		src.FreshnessScore = policy.Freshness(age)
		src.Recompute()
	}
	a.mu.Unlock()

	a.dispatch(pending)
	return len(pending)
}

// TickCountdown decrements the displayed countdown, stopping at zero.
// It has no effect on when the next cycle runs.
func (a *Agent) TickCountdown() {
	a.mu.Lock()
	if a.state.NextCollectionIn > 0 {
		a.state.NextCollectionIn--
	}
	a.mu.Unlock()
}

// SetMode switches the collection mode used by subsequent cycles.
func (a *Agent) SetMode(mode models.Mode) error {
	if _, err := models.ParseMode(string(mode)); err != nil {
		return err
	}
	a.mu.Lock()
	old := a.state.Mode
	if old == mode {
		a.mu.Unlock()
		return nil
	}
	a.state.Mode = mode
	d := a.appendDecision(a.clock.Now(), models.AgentDecision{
		Type:   models.DecisionReallocate,
		Reason: fmt.Sprintf("Mode changed: %s → %s", old, mode),
	})
	a.mu.Unlock()

	logger.Info("Agent mode changed from %s to %s", old, mode)
	a.dispatch([]models.AgentDecision{d})
	return nil
}

// ErrUnknownSource is returned when a source ID is not in the roster.
var ErrUnknownSource = errors.New("unknown source")

// ErrStatusNotSettable is returned for statuses only the agent assigns.
var ErrStatusNotSettable = errors.New("status can only be set to active or offline")

// SetSourceStatus lets an operator take a source offline or bring it back.
// Offline is never cleared by the agent itself.
func (a *Agent) SetSourceStatus(id string, status models.SourceStatus) error {
	if _, err := models.ParseSourceStatus(string(status)); err != nil {
		return err
	}
	if status != models.StatusActive && status != models.StatusOffline {
		return fmt.Errorf("%w: %s", ErrStatusNotSettable, status)
	}
	a.mu.Lock()
	idx := -1
	for i := range a.sources {
		if a.sources[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	src := &a.sources[idx]
	old := src.Status
	if old == status {
		a.mu.Unlock()
		return nil
	}
	src.Status = status
	d := a.appendDecision(a.clock.Now(), models.AgentDecision{
		Type:       models.DecisionReallocate,
		SourceID:   src.ID,
		SourceName: src.Name,
		Reason:     fmt.Sprintf("Status changed by operator: %s → %s", old, status),
	})
	a.mu.Unlock()

	logger.Info("Source %s status changed from %s to %s", id, old, status)
	a.dispatch([]models.AgentDecision{d})
	return nil
}

// Run drives the three periodic tasks until ctx is cancelled. An initial
// cycle runs immediately; each cycle arms the timer for the next one with the
// interval it chose. All tasks run on this goroutine, one at a time.
func (a *Agent) Run(ctx context.Context) error {
	countdown := a.clock.Ticker(a.config.CountdownInterval)
	defer countdown.Stop()
	sweep := a.clock.Ticker(a.config.StalenessInterval)
	defer sweep.Stop()

	logger.Debug("Running initial collection cycle")
	res := a.RunCycle()
	cycle := a.clock.Timer(res.NextInterval)
	defer cycle.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Agent stopped")
			return nil
		case <-countdown.C:
			a.TickCountdown()
		case <-sweep.C:
			if n := a.SweepStaleness(); n > 0 {
				logger.Debug("Staleness sweep: %d source(s) became stale", n)
			}
		case <-cycle.C:
			res = a.RunCycle()
			cycle.Reset(res.NextInterval)
		}
	}
}

// Snapshot returns a copy of the current state.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		Sources:      cloneSlice(a.sources),
		Agent:        a.state,
		PriceHistory: cloneSlice(a.history),
		Decisions:    cloneSlice(a.decisions),
		CurrentPrice: a.currentPrice,
	}
}

// appendDecision stamps d and prepends it to the capped log. Caller holds mu.
func (a *Agent) appendDecision(now time.Time, d models.AgentDecision) models.AgentDecision {
	d.ID = a.newID()
	d.Timestamp = now
	n := len(a.decisions) + 1
	if n > MaxDecisions {
		n = MaxDecisions
	}
	entries := make([]models.AgentDecision, n)
	entries[0] = d
	copy(entries[1:], a.decisions)
	a.decisions = entries
	return d
}

func (a *Agent) dispatch(decisions []models.AgentDecision) {
	for _, d := range decisions {
		for _, s := range a.sinks {
			if err := s.Record(d); err != nil {
				logger.Warn("Failed to record decision %s: %v", d.ID, err)
			}
		}
	}
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
