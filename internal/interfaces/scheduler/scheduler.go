// Package scheduler ejecuta las tareas desatendidas sobre los dispositivos fiscales:
// consulta de estado, renovación de tokens y apertura/cierre automático del día.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/pkg/config"
)

// Jobs lotes que dispara el planificador (implementado por *fiscal.DayUseCase).
type Jobs interface {
	CheckAllStatuses(ctx context.Context) (*fiscal.BatchReport, error)
	RefreshAllTokens(ctx context.Context) (*fiscal.BatchReport, error)
	AutoOpenDays(ctx context.Context) (*fiscal.BatchReport, error)
	AutoCloseDays(ctx context.Context) (*fiscal.BatchReport, error)
}

var _ Jobs = (*fiscal.DayUseCase)(nil)

// Scheduler una goroutine con ticker por tarea; todas terminan al cancelar el contexto.
type Scheduler struct {
	jobs           Jobs
	statusInterval time.Duration
	tokenInterval  time.Duration
	dayInterval    time.Duration
	openWindow     Window
	closeWindow    Window
	now            func() time.Time
	log            zerolog.Logger
	wg             sync.WaitGroup
}

// New valida las ventanas y construye el planificador.
func New(jobs Jobs, cfg config.SchedulerConfig, log zerolog.Logger) (*Scheduler, error) {
	open, err := ParseWindow(cfg.OpenWindow)
	if err != nil {
		return nil, err
	}
	closeW, err := ParseWindow(cfg.CloseWindow)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		jobs:           jobs,
		statusInterval: orDefault(cfg.StatusInterval, 30*time.Minute),
		tokenInterval:  orDefault(cfg.TokenInterval, 30*time.Minute),
		dayInterval:    orDefault(cfg.DayJobInterval, 5*time.Minute),
		openWindow:     open,
		closeWindow:    closeW,
		now:            time.Now,
		log:            log,
	}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start lanza las tareas y vuelve de inmediato.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().
		Dur("status_interval", s.statusInterval).
		Dur("token_interval", s.tokenInterval).
		Dur("day_interval", s.dayInterval).
		Str("open_window", s.openWindow.String()).
		Str("close_window", s.closeWindow.String()).
		Msg("planificador iniciado")

	s.every(ctx, s.statusInterval, func(ctx context.Context) {
		s.run(ctx, fiscal.JobStatusCheck, s.jobs.CheckAllStatuses)
	})
	s.every(ctx, s.tokenInterval, func(ctx context.Context) {
		s.run(ctx, fiscal.JobTokenRefresh, s.jobs.RefreshAllTokens)
	})
	s.every(ctx, s.dayInterval, s.RunDayJobs)
}

// Wait bloquea hasta que todas las tareas hayan terminado.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunDayJobs cierra y luego abre días según las ventanas vigentes. A las 00:00 ambas
// ventanas coinciden y el día recién cerrado se vuelve a abrir en el mismo tick.
func (s *Scheduler) RunDayJobs(ctx context.Context) {
	now := s.now()
	if s.closeWindow.Contains(now) {
		s.run(ctx, fiscal.JobAutoClose, s.jobs.AutoCloseDays)
	}
	if s.openWindow.Contains(now) {
		s.run(ctx, fiscal.JobAutoOpen, s.jobs.AutoOpenDays)
	}
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context, job string, fn func(context.Context) (*fiscal.BatchReport, error)) {
	rep, err := fn(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("job", job).Msg("tarea programada falló")
		return
	}
	ev := s.log.Info()
	if rep.Failed() > 0 {
		ev = s.log.Warn()
	}
	ev.Str("job", job).
		Int("processed", rep.Processed).
		Int("succeeded", rep.Succeeded).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed()).
		Msg("tarea programada completada")
}
