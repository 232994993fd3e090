package scheduler

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/logger"
	"github.com/robfig/cron/v3"
)

const (
	// 00:05 UTC on the 1st, once the previous month is closed
	MonthlyReportSpec = "5 0 1 * *"
	PlanRefreshSpec   = "@hourly"
)

type StatsSource interface {
	GlobalStats(ctx context.Context, startDate, endDate string) (*usage.GlobalStats, []usage.Record, error)
}

type ReportSink interface {
	SetMonthlyReport(interactions, prompts, users int)
}

type PlanRefresher interface {
	Refresh(ctx context.Context) ([]plans.Plan, error)
}

// runs the periodic usage jobs on a UTC cron
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	stats    StatsSource
	sink     ReportSink
	catalog  PlanRefresher
	now      func() time.Time
	jobLimit time.Duration
}

func New(stats StatsSource, sink ReportSink, catalog PlanRefresher) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		stats:    stats,
		sink:     sink,
		catalog:  catalog,
		now:      time.Now,
		jobLimit: 2 * time.Minute,
	}
}

// registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(MonthlyReportSpec, s.run("monthly_report", s.MonthlyReport)); err != nil {
		return fmt.Errorf("failed to schedule monthly report: %w", err)
	}

	if s.catalog != nil {
		if _, err := s.cron.AddFunc(PlanRefreshSpec, s.run("plan_refresh", s.RefreshPlans)); err != nil {
			return fmt.Errorf("failed to schedule plan refresh: %w", err)
		}
	}

	s.cron.Start()
	logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	return nil
}

// waits for running jobs, then cancels their context
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	logger.Info("scheduler stopped")
}

// totals the previous UTC month and publishes them
func (s *Scheduler) MonthlyReport(ctx context.Context) error {
	month := usage.MonthOf(s.now()).Previous()

	stats, _, err := s.stats.GlobalStats(ctx, month.Start(), month.Last())
	if err != nil {
		return fmt.Errorf("failed to build report for %s: %w", month, err)
	}

	if s.sink != nil {
		s.sink.SetMonthlyReport(stats.TotalInteractions, stats.TotalPrompts, stats.UniqueUsers)
	}

	logger.Info("monthly usage report",
		"month", month.String(),
		"interactions", stats.TotalInteractions,
		"prompts", stats.TotalPrompts,
		"unique_users", stats.UniqueUsers,
	)

	return nil
}

func (s *Scheduler) RefreshPlans(ctx context.Context) error {
	refreshed, err := s.catalog.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh plan catalog: %w", err)
	}

	logger.Debug("plan catalog refreshed", "plans", len(refreshed))

	return nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.jobLimit)
		defer cancel()

		if err := job(ctx); err != nil {
			logger.ErrorErr(err, "scheduled job failed", "job", name)
		}
	}
}
