package fiscal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
)

// Nombres de las tareas programadas (etiqueta de métricas y logs).
const (
	JobStatusCheck  = "status_check"
	JobTokenRefresh = "token_refresh"
	JobAutoOpen     = "auto_open"
	JobAutoClose    = "auto_close"
)

// BatchFailure fallo aislado de un dispositivo dentro de un lote.
type BatchFailure struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// BatchReport resumen de una ejecución por lote.
type BatchReport struct {
	Job       string         `json:"job"`
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Skipped   int            `json:"skipped"`
	Failures  []BatchFailure `json:"failures"`
}

// Failed cantidad de dispositivos con error.
func (r *BatchReport) Failed() int { return len(r.Failures) }

type batchJob struct {
	name    string
	subject string
	body    string // formato con %s para el error
	run     func(ctx context.Context, d *entity.FiscalDevice) (skipped bool, err error)
}

// CheckAllStatuses consulta el estado de todos los dispositivos.
func (uc *DayUseCase) CheckAllStatuses(ctx context.Context) (*BatchReport, error) {
	devices, err := uc.devices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar dispositivos: %w", err)
	}
	return uc.runBatch(ctx, devices, batchJob{
		name:    JobStatusCheck,
		subject: "Status Check Error",
		body:    "Automatic status check failed: %s",
		run: func(ctx context.Context, d *entity.FiscalDevice) (bool, error) {
			_, err := uc.CheckStatus(ctx, d)
			return false, err
		},
	}), nil
}

// RefreshAllTokens renueva solo los tokens vencidos o sin expiración.
func (uc *DayUseCase) RefreshAllTokens(ctx context.Context) (*BatchReport, error) {
	devices, err := uc.devices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar dispositivos: %w", err)
	}
	return uc.runBatch(ctx, devices, batchJob{
		name:    JobTokenRefresh,
		subject: "Token Refresh Error",
		body:    "Automatic token refresh failed: %s",
		run: func(ctx context.Context, d *entity.FiscalDevice) (bool, error) {
			if d.TokenValid(uc.now()) {
				return true, nil
			}
			return false, uc.client.EnsureValidToken(ctx, d)
		},
	}), nil
}

// AutoOpenDays abre el día solo en dispositivos con el día cerrado.
func (uc *DayUseCase) AutoOpenDays(ctx context.Context) (*BatchReport, error) {
	devices, err := uc.devices.ListByDayStatus(ctx, entity.FiscalDayClosed)
	if err != nil {
		return nil, fmt.Errorf("listar dispositivos cerrados: %w", err)
	}
	return uc.runBatch(ctx, devices, batchJob{
		name:    JobAutoOpen,
		subject: "Automatic Fiscal Day Open Failed",
		body:    "Failed to automatically open fiscal day: %s",
		run: func(ctx context.Context, d *entity.FiscalDevice) (bool, error) {
			res, err := uc.OpenDay(ctx, d)
			if err != nil {
				return false, err
			}
			return res.Skipped, nil
		},
	}), nil
}

// AutoCloseDays cierra el día solo en dispositivos con el día abierto.
func (uc *DayUseCase) AutoCloseDays(ctx context.Context) (*BatchReport, error) {
	devices, err := uc.devices.ListByDayStatus(ctx, entity.FiscalDayOpened)
	if err != nil {
		return nil, fmt.Errorf("listar dispositivos abiertos: %w", err)
	}
	return uc.runBatch(ctx, devices, batchJob{
		name:    JobAutoClose,
		subject: "Automatic Fiscal Day Close Failed",
		body:    "Failed to automatically close fiscal day: %s",
		run: func(ctx context.Context, d *entity.FiscalDevice) (bool, error) {
			res, err := uc.CloseDay(ctx, d)
			if err != nil {
				return false, err
			}
			return res.Skipped, nil
		},
	}), nil
}

// runBatch procesa los dispositivos en orden; el fallo de uno nunca detiene a los demás.
func (uc *DayUseCase) runBatch(ctx context.Context, devices []*entity.FiscalDevice, job batchJob) *BatchReport {
	report := &BatchReport{Job: job.name, Failures: []BatchFailure{}}
	for _, d := range devices {
		if ctx.Err() != nil {
			uc.log.Warn().Str("job", job.name).Msg("lote interrumpido por cancelación")
			break
		}
		report.Processed++

		skipped, err := uc.runOne(ctx, d, job)
		switch {
		case err != nil:
			report.Failures = append(report.Failures, uc.batchFailure(ctx, d, job, err))
			uc.metrics.RecordBatch(job.name, "error")
		case skipped:
			report.Skipped++
			uc.metrics.RecordBatch(job.name, "skipped")
		default:
			report.Succeeded++
			uc.metrics.RecordBatch(job.name, "ok")
			uc.log.Info().Str("job", job.name).Str("device", d.Name).Msg("tarea completada")
		}
	}
	uc.log.Info().
		Str("job", job.name).
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed()).
		Msg("lote finalizado")
	return report
}

// runOne convierte un panic de un dispositivo en error para no abortar el lote.
func (uc *DayUseCase) runOne(ctx context.Context, d *entity.FiscalDevice, job batchJob) (skipped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.run(ctx, d)
}

func (uc *DayUseCase) batchFailure(ctx context.Context, d *entity.FiscalDevice, job batchJob, err error) BatchFailure {
	f := BatchFailure{DeviceID: d.ID, DeviceName: d.Name, Code: infrafdms.CodeUnknownError, Message: err.Error()}
	if fe, ok := infrafdms.AsError(err); ok {
		f.Code = fe.Code
		f.Message = fe.Message
	}
	uc.log.Error().Err(err).Str("job", job.name).Str("device", d.Name).Msg("tarea fallida para el dispositivo")

	note := &entity.Note{
		ID:           uuid.New().String(),
		CompanyID:    d.CompanyID,
		ResourceType: entity.NoteResourceDevice,
		ResourceID:   d.ID,
		Subject:      job.subject,
		Body:         fmt.Sprintf(job.body, err.Error()),
		Level:        entity.NoteLevelError,
		CreatedAt:    uc.now(),
	}
	if nerr := uc.notes.Create(context.WithoutCancel(ctx), note); nerr != nil {
		uc.log.Error().Err(nerr).Str("device", d.Name).Msg("no se pudo registrar la nota")
	}
	return f
}
