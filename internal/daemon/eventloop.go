package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/copydesk/internal/config"
	"github.com/harun/copydesk/internal/observability"
	"github.com/robfig/cron/v3"
)

// EventLoop runs periodic maintenance while the daemon is up
type EventLoop struct {
	daemon   *Daemon
	schedule cron.Schedule
}

// NewEventLoop creates an event loop on the configured maintenance schedule
func NewEventLoop(d *Daemon) (*EventLoop, error) {
	expr := d.config.Maintenance.Schedule
	if expr == "" {
		expr = config.DefaultMaintenanceSchedule
	}

	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", expr, err)
	}

	return &EventLoop{
		daemon:   d,
		schedule: schedule,
	}, nil
}

// Run runs the event loop until ctx is cancelled
func (e *EventLoop) Run(ctx context.Context) {
	e.daemon.logger.Info().Msg("Event loop started")

	for {
		timer := time.NewTimer(time.Until(e.schedule.Next(time.Now())))

		select {
		case <-ctx.Done():
			timer.Stop()
			e.daemon.logger.Info().Msg("Event loop stopping")
			return

		case <-timer.C:
			e.processTasks(ctx)
		}
	}
}

// processTasks logs busy lanes and refreshes the session gauge
func (e *EventLoop) processTasks(ctx context.Context) {
	stats := e.daemon.queue.GetStats()
	busy := 0
	for lane, laneStats := range stats {
		if laneStats["queued"] > 0 || laneStats["running"] > 0 {
			busy++
			e.daemon.logger.Debug().
				Str("lane", lane).
				Int("queued", laneStats["queued"]).
				Int("running", laneStats["running"]).
				Msg("Queue stats")
		}
	}

	sessions := e.daemon.store.Len()
	observability.SetActiveSessions(sessions)

	e.daemon.logger.Debug().
		Int("sessions", sessions).
		Int("busy_lanes", busy).
		Msg("Maintenance tick")
}

// HandleShutdown waits briefly for running commands to finish
func (e *EventLoop) HandleShutdown() {
	e.daemon.logger.Info().Msg("Handling graceful shutdown")

	if e.daemon.queue.WaitForActive(5 * time.Second) {
		e.daemon.logger.Info().Msg("All active tasks completed")
	}
}
