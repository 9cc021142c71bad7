// Package fiscal casos de uso de fiscalización: ciclo del día fiscal, tareas
// programadas por lote, envío de recibos y administración de dispositivos.
package fiscal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
)

// DayResult resultado de una transición del día fiscal.
type DayResult struct {
	Device          *entity.FiscalDevice
	Skipped         bool // el estado local ya era el destino; no hubo llamada a FDMS
	FiscalDayNo     string
	FiscalDayStatus string
	FiscalDayClosed string
	LastReceiptNo   int64
	Message         string
}

// DayUseCase máquina de estados del día fiscal (abierto/cerrado) y sesión del dispositivo.
type DayUseCase struct {
	devices repository.FiscalDeviceRepository
	notes   repository.NoteRepository
	client  FDMSClient
	events  EventPublisher
	metrics Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewDayUseCase construye el caso de uso. events y metrics pueden ser nil.
func NewDayUseCase(
	devices repository.FiscalDeviceRepository,
	notes repository.NoteRepository,
	client FDMSClient,
	events EventPublisher,
	metrics Metrics,
	log zerolog.Logger,
) *DayUseCase {
	if events == nil {
		events = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &DayUseCase{
		devices: devices,
		notes:   notes,
		client:  client,
		events:  events,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// OpenDay abre el día fiscal. Si el estado local ya es FISCALDAYOPENED no llama a FDMS.
func (uc *DayUseCase) OpenDay(ctx context.Context, d *entity.FiscalDevice) (*DayResult, error) {
	if d.IsDayOpen() {
		return &DayResult{
			Device:          d,
			Skipped:         true,
			FiscalDayNo:     d.FiscalDayNo,
			FiscalDayStatus: d.FiscalDayStatus,
			Message:         fmt.Sprintf("Fiscal day %s is already open", d.FiscalDayNo),
		}, nil
	}

	resp, err := uc.client.OpenDay(ctx, d)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	status := entity.FiscalDayOpened
	dayNo := resp.FiscalDayNo.String()
	upd := entity.DayStateUpdate{
		FiscalDayStatus: &status,
		FiscalDayNo:     &dayNo,
		LastOperation:   &now,
	}
	if err := uc.devices.UpdateDayState(ctx, d.ID, upd); err != nil {
		return nil, fmt.Errorf("guardar apertura del día: %w", err)
	}
	upd.Apply(d)

	uc.publish(ctx, entity.FiscalEvent{
		Type:        entity.EventDayOpened,
		CompanyID:   d.CompanyID,
		DeviceID:    d.ID,
		FiscalDayNo: dayNo,
		OccurredAt:  now,
	})
	uc.log.Info().Str("device", d.Name).Str("fiscal_day_no", dayNo).Msg("día fiscal abierto")

	return &DayResult{
		Device:          d,
		FiscalDayNo:     dayNo,
		FiscalDayStatus: status,
		Message:         "New fiscal day number: " + dayNo,
	}, nil
}

// CloseDay cierra el día fiscal y adopta el estado que informe FDMS (no asume FISCALDAYCLOSED).
// Si el estado local ya es FISCALDAYCLOSED no llama a FDMS.
func (uc *DayUseCase) CloseDay(ctx context.Context, d *entity.FiscalDevice) (*DayResult, error) {
	if d.IsDayClosed() {
		return &DayResult{
			Device:          d,
			Skipped:         true,
			FiscalDayNo:     d.FiscalDayNo,
			FiscalDayStatus: d.FiscalDayStatus,
			LastReceiptNo:   d.LastReceiptNo,
			Message:         fmt.Sprintf("Fiscal day %s is already closed", d.FiscalDayNo),
		}, nil
	}

	resp, err := uc.client.CloseDay(ctx, d)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	status := resp.FiscalDayStatus
	upd := entity.DayStateUpdate{
		FiscalDayStatus:     &status,
		LastReceiptGlobalNo: resp.LastReceiptGlobalNo,
		LastReceiptNo:       resp.LastReceiptNo,
		LastOperation:       &now,
	}
	if resp.FiscalDayNo != nil {
		dayNo := resp.FiscalDayNo.String()
		upd.FiscalDayNo = &dayNo
	}
	if err := uc.devices.UpdateDayState(ctx, d.ID, upd); err != nil {
		return nil, fmt.Errorf("guardar cierre del día: %w", err)
	}
	upd.Apply(d)

	res := &DayResult{
		Device:          d,
		FiscalDayNo:     orNA(resp.FiscalDayNo.String()),
		FiscalDayStatus: status,
		FiscalDayClosed: orNA(resp.FiscalDayClosed.String()),
	}
	if resp.LastReceiptNo != nil {
		res.LastReceiptNo = *resp.LastReceiptNo
	}
	res.Message = fmt.Sprintf("Day closed successfully!\n• Fiscal Day Number: %s\n• Closed At: %s\n• Last Receipt: #%d",
		res.FiscalDayNo, res.FiscalDayClosed, res.LastReceiptNo)

	uc.publish(ctx, entity.FiscalEvent{
		Type:        entity.EventDayClosed,
		CompanyID:   d.CompanyID,
		DeviceID:    d.ID,
		FiscalDayNo: d.FiscalDayNo,
		Code:        status,
		OccurredAt:  now,
	})
	uc.log.Info().Str("device", d.Name).Str("status", status).Msg("día fiscal cerrado")
	return res, nil
}

// CheckStatus reconcilia el espejo local con FDMS: sobrescribe siempre estado, contadores,
// números de recibo y de día con lo reportado (los ausentes quedan en su valor cero).
func (uc *DayUseCase) CheckStatus(ctx context.Context, d *entity.FiscalDevice) (*DayResult, error) {
	resp, err := uc.client.GetStatus(ctx, d)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	var globalNo, receiptNo int64
	if resp.LastReceiptGlobalNo != nil {
		globalNo = *resp.LastReceiptGlobalNo
	}
	if resp.LastReceiptNo != nil {
		receiptNo = *resp.LastReceiptNo
	}
	counters := resp.FiscalDayCounters
	if len(counters) == 0 || string(counters) == "null" {
		counters = json.RawMessage(`[]`)
	}
	status := resp.FiscalDayStatus
	dayNo := resp.LastFiscalDayNo.String()

	upd := entity.DayStateUpdate{
		FiscalDayStatus:     &status,
		FiscalDayNo:         &dayNo,
		LastReceiptGlobalNo: &globalNo,
		LastReceiptNo:       &receiptNo,
		FiscalDayCounters:   counters,
		LastStatusCheck:     &now,
	}
	if err := uc.devices.UpdateDayState(ctx, d.ID, upd); err != nil {
		return nil, fmt.Errorf("guardar estado del dispositivo: %w", err)
	}
	upd.Apply(d)

	uc.publish(ctx, entity.FiscalEvent{
		Type:        entity.EventStatusChecked,
		CompanyID:   d.CompanyID,
		DeviceID:    d.ID,
		FiscalDayNo: dayNo,
		Code:        status,
		OccurredAt:  now,
	})
	return &DayResult{
		Device:          d,
		FiscalDayNo:     dayNo,
		FiscalDayStatus: status,
		LastReceiptNo:   receiptNo,
		Message:         "Device status updated successfully",
	}, nil
}

// RefreshToken renovación manual: siempre pide un token nuevo.
func (uc *DayUseCase) RefreshToken(ctx context.Context, d *entity.FiscalDevice) error {
	if err := uc.client.AcquireToken(ctx, d); err != nil {
		return err
	}
	uc.log.Info().Str("device", d.Name).Msg("token renovado manualmente")
	return nil
}

func (uc *DayUseCase) publish(ctx context.Context, ev entity.FiscalEvent) {
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("event", ev.Type).Msg("no se pudo publicar el evento")
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
