package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// cronTickerInterval is the interval at which the scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// ErrSchedulerNotRunning is returned when a trigger arrives before Start
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// ReconciliationSchedulerConfig holds configuration for the nightly
// balance-reconciliation run
type ReconciliationSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the reconciliation
	CronHour int
	// CronMinute is the minute (0-59) to run the reconciliation
	CronMinute int
	// JobTimeout is the maximum time one run may take
	JobTimeout time.Duration
}

// DefaultReconciliationSchedulerConfig returns default configuration,
// running at 2:00 AM daily
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:    true,
		CronHour:   2,
		CronMinute: 0,
		JobTimeout: 25 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract
// hour and minute. Returns defaults (2:00) when the expression is empty or
// has fewer than two fields.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if val, parseErr := parseCronField(parts[0]); parseErr == nil {
			minute = val
		}
	}
	if parts[1] != "*" {
		if val, parseErr := parseCronField(parts[1]); parseErr == nil {
			hour = val
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

func parseCronField(s string) (int, error) {
	val := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid cron field %q", s)
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// ReconciliationScheduler runs the full-ledger reconciliation once a day.
// The job lease inside the reconciliation service keeps multiple instances
// from double-running; this scheduler only decides when to try.
type ReconciliationScheduler struct {
	config  ReconciliationSchedulerConfig
	service *ledgerapp.ReconciliationService
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewReconciliationScheduler creates a new ReconciliationScheduler
func NewReconciliationScheduler(
	config ReconciliationSchedulerConfig,
	service *ledgerapp.ReconciliationService,
	logger *zap.Logger,
) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// Start starts the cron loop
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Reconciliation scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron loop and waits for an in-flight run to finish
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *ReconciliationScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runReconciliation(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

func (s *ReconciliationScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

func (s *ReconciliationScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

func (s *ReconciliationScheduler) runReconciliation(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	runCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	report, err := s.service.ReconcileAll(runCtx, nil)
	if errors.Is(err, shared.ErrAlreadyExists) {
		s.logger.Info("Reconciliation already running elsewhere, skipping")
		return
	}
	if err != nil {
		s.logger.Error("Scheduled reconciliation failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled reconciliation finished",
		zap.Int("total_pairs", report.TotalPairs),
		zap.Int("checked", report.Checked),
		zap.Int("drifted", report.Drifted),
		zap.Int("failed", report.Failed),
		zap.Bool("interrupted", report.Interrupted),
	)
}

// TriggerManualRun kicks off a reconciliation outside the schedule. Uses a
// background context so an HTTP caller disconnecting does not cancel the run.
func (s *ReconciliationScheduler) TriggerManualRun() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runReconciliation(context.Background())
	return nil
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *ReconciliationScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *ReconciliationScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
