package value

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/simplestorage/business/sys/rpcerr"
)

// DefaultPollInterval is used when the watcher is given no interval.
const DefaultPollInterval = 5 * time.Second

// Watcher follows the head of the chain and publishes every new update of
// the value as it is mined.
type Watcher struct {
	core     *Core
	interval time.Duration
	publish  func(Update)
	wg       sync.WaitGroup
	shut     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	// Only accessed by the polling goroutine.
	started bool
	next    uint64
}

// RunWatcher constructs a watcher and starts the polling goroutine. Updates
// mined before the watcher starts are not published.
func RunWatcher(core *Core, interval time.Duration, publish func(Update)) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Watcher{
		core:     core,
		interval: interval,
		publish:  publish,
		shut:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)

	// We don't want to return until we know the G is up and running.
	hasStarted := make(chan bool)

	go func() {
		defer w.wg.Done()
		hasStarted <- true
		w.operations()
	}()

	<-hasStarted

	return &w
}

// Shutdown terminates the polling goroutine and waits for it to return.
func (w *Watcher) Shutdown() {
	w.core.log.Infow("watcher", "status", "shutdown started")
	defer w.core.log.Infow("watcher", "status", "shutdown completed")

	w.cancel()
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// operations polls on every tick until a shutdown is signaled.
func (w *Watcher) operations() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll()

	for {
		select {
		case <-ticker.C:
			w.poll()

		case <-w.shut:
			return
		}
	}
}

// poll publishes the updates mined since the previous poll. On the first
// poll it only records the head. Queries are chunked so no single query
// exceeds the range limit.
func (w *Watcher) poll() int {
	head, err := w.core.Head(w.ctx)
	if err != nil {
		w.core.log.Errorw("watcher", "status", "head", "transient", rpcerr.Classify(err).Transient(), "ERROR", err)
		return 0
	}

	if !w.started {
		w.started = true
		w.next = head + 1
		w.core.log.Infow("watcher", "status", "following", "head", head)
		return 0
	}

	var published int
	for w.next <= head && !w.isShutdown() {
		to := min(head, w.next+w.core.cfg.MaxRange-1)

		updates, err := w.core.filter(w.ctx, w.next, to)
		if err != nil {
			w.core.log.Errorw("watcher", "status", "filter", "from", w.next, "to", to, "transient", rpcerr.Classify(err).Transient(), "ERROR", err)
			return published
		}

		for _, upd := range updates {
			w.publish(upd)
			published++
		}

		w.next = to + 1
	}

	return published
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Watcher) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
