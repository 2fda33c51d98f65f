package status

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anshulsingh8326/FusionDash/domain"
)

// CatalogSource supplies the services to poll. Polling covers the whole
// catalog regardless of which view is mounted.
type CatalogSource interface {
	Services() []domain.Service
}

// Poller sweeps the catalog on a fixed cadence, fanning probes out over a
// bounded worker pool. Duplicate in-flight probes for the same service are
// possible and fine: probes are idempotent and results are keyed by id.
type Poller struct {
	tracker  *Tracker
	prober   *Prober
	catalog  CatalogSource
	interval time.Duration
	workers  int
	log      *log.Logger

	jobs chan domain.Service
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewPoller creates a Poller. Zero interval and workers fall back to a 60s
// cadence and 8 workers.
func NewPoller(tracker *Tracker, prober *Prober, catalog CatalogSource, interval time.Duration, workers int, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if workers <= 0 {
		workers = 8
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Poller{
		tracker:  tracker,
		prober:   prober,
		catalog:  catalog,
		interval: interval,
		workers:  workers,
		log:      logger,
		jobs:     make(chan domain.Service, 256),
		stop:     make(chan struct{}),
	}
}

// Start launches the worker pool and the sweep loop. The first sweep runs
// immediately so fresh cards get a result without waiting a full interval.
func (p *Poller) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.wg.Add(1)
	go p.loop()
	p.log.Infof("status poller started, interval: %v, workers: %d", p.interval, p.workers)
}

// Stop terminates the loop and waits for in-flight probes to finish.
func (p *Poller) Stop() {
	p.once.Do(func() {
		close(p.stop)
		p.wg.Wait()
	})
}

// Kick schedules an immediate probe for one service, used when a service
// enters the catalog between sweeps. Falls back to probing inline when the
// queue is saturated.
func (p *Poller) Kick(svc domain.Service) {
	if !p.tryEnqueue(svc) {
		p.probe(svc)
	}
}

func (p *Poller) tryEnqueue(svc domain.Service) (ok bool) {
	// The jobs channel is closed on shutdown; a late Kick must not panic.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case p.jobs <- svc:
		return true
	default:
		return false
	}
}

func (p *Poller) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sweep()
	for {
		select {
		case <-p.stop:
			close(p.jobs)
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Poller) sweep() {
	start := time.Now()
	for _, svc := range p.catalog.Services() {
		select {
		case p.jobs <- svc:
		case <-p.stop:
			return
		}
	}
	pollCycles.Inc()
	pollDuration.Observe(time.Since(start).Seconds())
}

func (p *Poller) worker() {
	defer p.wg.Done()
	for svc := range p.jobs {
		p.probe(svc)
	}
}

func (p *Poller) probe(svc domain.Service) {
	// A backend-reported dead container needs no network round trip.
	if svc.LifecycleDown() {
		p.tracker.Set(svc.ID, StateOffline)
		probesTotal.WithLabelValues("lifecycle_down").Inc()
		return
	}
	if svc.Href == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.prober.client.Timeout+time.Second)
	res := p.prober.Ping(ctx, svc.Href)
	cancel()

	p.tracker.Set(svc.ID, res.State)
	probesTotal.WithLabelValues(string(res.State)).Inc()
	if res.Err != nil {
		p.log.WithFields(log.Fields{"service": svc.ID, "href": svc.Href}).
			WithError(res.Err).Debug("probe failed")
	}
}
