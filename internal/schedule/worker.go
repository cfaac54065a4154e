package schedule

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// Job is run when its trigger fires. Errors are logged only.
type Job func(ctx context.Context) error

type entry struct {
	trigger Trigger
	job     Job
	next    time.Time
}

// Run is an upcoming firing.
type Run struct {
	Name string
	At   time.Time
}

// Worker fires weekly triggers. Triggers that come due in the same tick fire
// one after another in chronological order.
type Worker struct {
	loc      *time.Location
	now      func() time.Time
	interval time.Duration

	mu       sync.Mutex
	entries  []*entry
	stopChan chan struct{}
	ticker   *time.Ticker
	done     chan struct{}
}

func NewWorker(loc *time.Location) *Worker {
	if loc == nil {
		loc = time.UTC
	}
	return &Worker{
		loc:      loc,
		now:      time.Now,
		interval: 30 * time.Second,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Add registers a job. The first run is the next occurrence after now, so a
// trigger whose time already passed this week waits for next week.
func (w *Worker) Add(tr Trigger, job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, &entry{
		trigger: tr,
		job:     job,
		next:    tr.Next(w.now().In(w.loc)),
	})
}

// Upcoming lists the next run of every trigger, soonest first.
func (w *Worker) Upcoming() []Run {
	w.mu.Lock()
	defer w.mu.Unlock()
	runs := make([]Run, 0, len(w.entries))
	for _, e := range w.entries {
		runs = append(runs, Run{Name: e.trigger.Name, At: e.next})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].At.Before(runs[j].At) })
	return runs
}

func (w *Worker) Start() {
	if w == nil {
		return
	}
	w.mu.Lock()
	for _, e := range w.entries {
		log.Printf("schedule: %s next at %s", e.trigger, e.next.Format(time.RFC1123))
	}
	w.mu.Unlock()

	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *Worker) Stop() {
	if w == nil || w.ticker == nil {
		return
	}
	close(w.stopChan)
	w.ticker.Stop()
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	now := w.now().In(w.loc)

	w.mu.Lock()
	var due []*entry
	for _, e := range w.entries {
		if !now.Before(e.next) {
			due = append(due, e)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].next.Before(due[j].next) })
	w.mu.Unlock()

	for _, e := range due {
		log.Printf("schedule: firing %s", e.trigger)
		if err := e.job(ctx); err != nil {
			log.Printf("schedule: %s finished with errors: %v", e.trigger.Name, err)
		}
		w.mu.Lock()
		e.next = e.trigger.Next(now)
		w.mu.Unlock()
	}
}
