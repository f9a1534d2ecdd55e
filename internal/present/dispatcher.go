package present

import (
	"sync"

	"go.uber.org/zap"
)

// Dispatcher is the UI-affine confinement point: a single goroutine that
// runs every queue and state-machine mutation in the order it was posted.
// Sync completions, tickles and surface callbacks all funnel through here
// so no two triggers ever touch the queue concurrently.
type Dispatcher struct {
	tasks chan func()
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	log   *zap.SugaredLogger
}

func NewDispatcher(capacity int, log *zap.SugaredLogger) *Dispatcher {
	if capacity <= 0 {
		capacity = 64
	}
	d := &Dispatcher{
		tasks: make(chan func(), capacity),
		quit:  make(chan struct{}),
		log:   log,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case task := <-d.tasks:
			task()
		case <-d.quit:
			// drain what was posted before the stop
			for {
				select {
				case task := <-d.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// Post enqueues a task preserving program order relative to everything
// posted before it. Tasks posted after Stop are dropped.
func (d *Dispatcher) Post(task func()) {
	select {
	case <-d.quit:
		d.log.Debugw("dispatcher stopped, dropping task")
	default:
		select {
		case d.tasks <- task:
		case <-d.quit:
			d.log.Debugw("dispatcher stopped, dropping task")
		}
	}
}

// Stop drains pending tasks and shuts the goroutine down.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.quit)
	})
	d.wg.Wait()
}
