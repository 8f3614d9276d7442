package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultStatSchedule is the sampling schedule used when none is configured.
const DefaultStatSchedule = "@every 15s"

// StatUpdater samples the connection pool and row counts into the store
// gauges on a cron schedule.
type StatUpdater struct {
	db       *sql.DB
	metrics  *Metrics
	schedule cron.Schedule
	now      func() time.Time
	done     chan struct{}
	stopped  chan struct{}
}

// NewStatUpdater creates a StatUpdater for a standard cron expression or
// descriptor such as "@every 30s". An empty spec uses DefaultStatSchedule.
func NewStatUpdater(db *sql.DB, metrics *Metrics, spec string) (*StatUpdater, error) {
	if spec == "" {
		spec = DefaultStatSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", spec, err)
	}
	return &StatUpdater{
		db:       db,
		metrics:  metrics,
		schedule: schedule,
		now:      time.Now,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Run samples once immediately, then at every scheduled time until Stop.
func (su *StatUpdater) Run() {
	defer close(su.stopped)
	log.Info().Msg("Starting background stat updater...")

	su.Update(context.Background())
	for {
		next := su.schedule.Next(su.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			su.Update(context.Background())
		case <-su.done:
			timer.Stop()
			log.Info().Msg("Stopping background stat updater.")
			return
		}
	}
}

// Stop ends Run and waits for it to return.
func (su *StatUpdater) Stop() {
	close(su.done)
	<-su.stopped
}

// Update takes one sample. Count failures are logged and leave the previous
// gauge value in place.
func (su *StatUpdater) Update(ctx context.Context) {
	stats := su.db.Stats()
	su.metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	su.metrics.DBConnectionsInUse.Set(float64(stats.InUse))
	su.metrics.DBConnectionsIdle.Set(float64(stats.Idle))

	counts := []struct {
		table string
		set   func(float64)
	}{
		{"users", su.metrics.UsersTotal.Set},
		{"leagues", su.metrics.LeaguesTotal.Set},
		{"league_events", su.metrics.EventsTotal.Set},
	}
	for _, c := range counts {
		var n int64
		if err := su.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(&n); err != nil {
			log.Error().Err(err).Str("table", c.table).Msg("Failed to count rows")
			continue
		}
		c.set(float64(n))
	}
}
