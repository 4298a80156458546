/*
scheduler.go - Background maintenance jobs

PURPOSE:
  Runs the recurring maintenance work behind the API:
  - The deduplication sweep, at startup and then on a cron schedule.
  - The daily due-cost pass: every FIXED_COST item dated today that has
    not been notified yet gets an UPCOMING notification and is marked
    notified, so restarts never notify twice.

DESIGN:
  robfig/cron drives the schedules. Jobs are best-effort: failures are
  logged here and the next run tries again. Stop() waits for a running
  job to finish.

SEE ALSO:
  - calendar/sweep.go: Sweep implementation
  - handlers.go: RunSweep endpoint (manual trigger)
*/
package api

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/calendar-engine/calendar"
)

// Maintenance owns the cron runner and its jobs.
type Maintenance struct {
	Store         calendar.Store
	Sweep         *calendar.Sweep
	Notifications *calendar.NotificationService
	Log           *logrus.Logger

	// Now returns the current day for the due-cost pass.
	Now func() calendar.Date

	cron *cron.Cron
}

func NewMaintenance(store calendar.Store, sweep *calendar.Sweep, notifications *calendar.NotificationService, log *logrus.Logger) *Maintenance {
	return &Maintenance{
		Store:         store,
		Sweep:         sweep,
		Notifications: notifications,
		Log:           log,
		Now:           calendar.Today,
		cron:          cron.New(),
	}
}

// Start registers the jobs and starts the cron runner. The sweep also runs
// once immediately so a restart repairs duplicates without waiting a day.
func (m *Maintenance) Start(sweepSpec, dueNotifySpec string) error {
	if _, err := m.cron.AddFunc(sweepSpec, m.runSweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", sweepSpec, err)
	}
	if _, err := m.cron.AddFunc(dueNotifySpec, m.notifyDueCosts); err != nil {
		return fmt.Errorf("invalid due-notify schedule %q: %w", dueNotifySpec, err)
	}

	go m.runSweep()

	m.cron.Start()
	m.Log.WithFields(logrus.Fields{
		"sweep":      sweepSpec,
		"due_notify": dueNotifySpec,
	}).Info("maintenance scheduler started")
	return nil
}

// Stop stops the cron runner and waits for running jobs.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.Log.Info("maintenance scheduler stopped")
}

func (m *Maintenance) runSweep() {
	stats, err := m.Sweep.Run(context.Background())
	if err != nil {
		m.Log.WithError(err).Warn("sweep finished with errors")
	}
	if stats.HolidaysRemoved+stats.ItemsRemoved+stats.RulesDeactivated > 0 {
		m.Log.WithFields(logrus.Fields{
			"holidays_removed":  stats.HolidaysRemoved,
			"items_removed":     stats.ItemsRemoved,
			"rules_deactivated": stats.RulesDeactivated,
			"months_evicted":    stats.MonthsEvicted,
		}).Info("sweep removed duplicates")
	}
}

// notifyDueCosts creates an UPCOMING notification for every FIXED_COST item
// due today that has not been notified yet.
func (m *Maintenance) notifyDueCosts() {
	ctx := context.Background()
	today := m.Now()

	due, err := m.Store.FindUnnotifiedByDay(ctx, today, calendar.CategoryFixedCost)
	if err != nil {
		m.Log.WithError(err).Warn("due-cost lookup failed")
		return
	}

	notified := 0
	for i := range due {
		item := due[i]

		message := fmt.Sprintf("%s due today: %s", calendar.CategoryFixedCost, item.Title)
		if item.Amount != nil {
			message = fmt.Sprintf("%s (%s)", message, item.Amount.String())
		}
		id := item.ID
		m.Notifications.Record(ctx, calendar.Notification{
			UserID:     item.UserID,
			Type:       calendar.NotifyUpcoming,
			Importance: calendar.ImportanceHigh,
			Message:    message,
			ItemID:     &id,
		})

		item.Notified = true
		if err := m.Store.SaveItem(ctx, &item); err != nil {
			m.Log.WithError(err).WithField("item", item.ID).Warn("failed to mark item notified")
			continue
		}
		notified++
	}

	if notified > 0 {
		m.Log.WithFields(logrus.Fields{
			"date":  today.String(),
			"count": notified,
		}).Info("due-cost notifications sent")
	}
}
