package session

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweeper once a minute
const DefaultSweepSchedule = "@every 1m"

// Sweeper periodically expires idle sessions
type Sweeper struct {
	store *Store
	cron  *cron.Cron
}

// NewSweeper schedules store.Sweep on a cron spec
func NewSweeper(store *Store, schedule string) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	sw := &Sweeper{
		store: store,
		cron:  cron.New(),
	}

	_, err := sw.cron.AddFunc(schedule, sw.run)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return sw, nil
}

func (sw *Sweeper) run() {
	if n := sw.store.Sweep(); n > 0 {
		log.Printf("[SESSION-STORE]: Swept %d expired sessions, %d remain", n, sw.store.Len())
	}
}

// Start begins the schedule in the background
func (sw *Sweeper) Start() {
	sw.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}
