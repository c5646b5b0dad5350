// Package pricefeed implements the synthetic price feed: a random walk
// around fixed base anchors, broadcast to subscribers on a fixed interval.
// It is an injectable component with an explicit lifecycle, owned by
// whatever composes the app.
package pricefeed

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ostapkoval/startrade/internal/common"
	"github.com/ostapkoval/startrade/internal/interfaces"
	"github.com/ostapkoval/startrade/internal/models"
)

// minPrice floors every simulated price; prices never reach zero.
var minPrice = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// Service implements interfaces.PriceFeed. It is Idle with no subscribers
// and Running (ticker active) with at least one.
type Service struct {
	logger     *common.Logger
	interval   time.Duration
	historyCap int

	mu      sync.Mutex
	base    map[string]decimal.Decimal
	prices  models.PriceSnapshot
	history map[string][]models.PricePoint
	subs    map[int]interfaces.PriceUpdateFunc
	nextSub int
	running bool
	stop    chan struct{}
	rng     *rand.Rand
}

// NewService creates a price feed tracking the default catalog.
func NewService(logger *common.Logger, config common.PriceFeedConfig) *Service {
	s := &Service{
		logger:     logger,
		interval:   config.GetInterval(),
		historyCap: config.HistoryCap,
		base:       make(map[string]decimal.Decimal),
		prices:     make(models.PriceSnapshot),
		history:    make(map[string][]models.PricePoint),
		subs:       make(map[int]interfaces.PriceUpdateFunc),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if s.historyCap <= 0 {
		s.historyCap = 720
	}

	for _, a := range Catalog {
		s.AddAsset(a.ID, a.BasePrice)
	}
	return s
}

// AddAsset registers a new tracked asset at its base price with a zero 24h
// change.
func (s *Service) AddAsset(assetID string, basePrice decimal.Decimal) {
	if !basePrice.IsPositive() {
		return
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.base[assetID] = basePrice
	s.prices[assetID] = models.AssetPrice{
		ID:          assetID,
		Price:       basePrice,
		Change24h:   decimal.Zero,
		LastUpdated: now,
	}
	s.history[assetID] = append(s.history[assetID], models.PricePoint{Time: now, Price: basePrice})
}

// Subscribe registers a callback and synchronously delivers the current
// snapshot. The first subscriber starts the ticker; the returned function
// unsubscribes and stops the ticker when no subscribers remain.
func (s *Service) Subscribe(fn interfaces.PriceUpdateFunc) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	if !s.running {
		s.startLocked()
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.deliver(fn, snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			if len(s.subs) == 0 && s.running {
				s.stopLocked()
			}
		})
	}
}

// CurrentPrice returns the latest price for an asset.
func (s *Service) CurrentPrice(assetID string) (models.AssetPrice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[assetID]
	return p, ok
}

// AllPrices returns a copy of the latest full snapshot.
func (s *Service) AllPrices() models.PriceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// History returns the retained price points for an asset, oldest first.
func (s *Service) History(assetID string) []models.PricePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := s.history[assetID]
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	return out
}

// Stop halts the ticker and drops all subscribers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[int]interfaces.PriceUpdateFunc)
	if s.running {
		s.stopLocked()
	}
}

// Running reports whether the ticker is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// startLocked transitions Idle -> Running. Caller holds s.mu.
func (s *Service) startLocked() {
	s.running = true
	s.stop = make(chan struct{})
	go s.loop(s.stop)
	s.logger.Debug().Dur("interval", s.interval).Msg("Price feed started")
}

// stopLocked transitions Running -> Idle. Caller holds s.mu.
func (s *Service) stopLocked() {
	close(s.stop)
	s.running = false
	s.logger.Debug().Msg("Price feed stopped")
}

func (s *Service) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick applies one bounded random perturbation (±0.5%) to every tracked
// asset and pushes the full snapshot to every subscriber.
func (s *Service) tick() {
	now := time.Now()

	s.mu.Lock()
	for id, current := range s.prices {
		pct := (s.rng.Float64() - 0.5) * 0.01
		next := current.Price.Add(current.Price.Mul(decimal.NewFromFloat(pct)))
		if next.LessThan(minPrice) {
			next = minPrice
		}

		base := s.base[id]
		change := next.Sub(base).Div(base).Mul(hundred)

		s.prices[id] = models.AssetPrice{
			ID:          id,
			Price:       next,
			Change24h:   change,
			LastUpdated: now,
		}

		points := append(s.history[id], models.PricePoint{Time: now, Price: next})
		if len(points) > s.historyCap {
			points = points[len(points)-s.historyCap:]
		}
		s.history[id] = points
	}

	snapshot := s.snapshotLocked()
	subs := make([]interfaces.PriceUpdateFunc, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		s.deliver(fn, snapshot)
	}
}

// deliver invokes one subscriber, isolating panics so a broken callback
// never blocks delivery to the others.
func (s *Service) deliver(fn interfaces.PriceUpdateFunc, snapshot models.PriceSnapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", rec)).
				Msg("Price feed subscriber panicked")
		}
	}()
	fn(snapshot)
}

// snapshotLocked copies the current snapshot. Caller holds s.mu.
func (s *Service) snapshotLocked() models.PriceSnapshot {
	out := make(models.PriceSnapshot, len(s.prices))
	for id, p := range s.prices {
		out[id] = p
	}
	return out
}
