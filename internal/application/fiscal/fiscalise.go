package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	domainfdms "github.com/jhoicas/zimra-fiscal/internal/domain/fdms"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
)

const duplicateInvoiceMessage = "This invoice number already exists in the fiscal system"

// FiscalisationError rechazo de FDMS al enviar un recibo. La factura queda sin fiscalizar.
type FiscalisationError struct {
	InvoiceID   string
	Code        string
	Status      int
	OperationID string
	Message     string
	// Duplicate FDMS ya tiene ese número de factura: requiere conciliación manual, no reintentar.
	Duplicate bool
	Err       error
}

func (e *FiscalisationError) Error() string {
	return fmt.Sprintf("Fiscalisation Error [%s]: %s", e.Code, e.Message)
}

func (e *FiscalisationError) Unwrap() error { return e.Err }

// FiscaliseResult resultado de un envío exitoso.
type FiscaliseResult struct {
	Invoice         *entity.Invoice
	Record          entity.FiscalRecord
	VerificationURL string
	Message         string
}

// FiscaliseUseCase orquesta el envío de una factura a FDMS:
//
//	precondiciones → payload → SubmitReceipt → escritura condicional → nota/evento
type FiscaliseUseCase struct {
	invoices repository.InvoiceRepository
	devices  repository.FiscalDeviceRepository
	notes    repository.NoteRepository
	client   FDMSClient
	events   EventPublisher
	metrics  Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewFiscaliseUseCase construye el orquestador. events y metrics pueden ser nil.
func NewFiscaliseUseCase(
	invoices repository.InvoiceRepository,
	devices repository.FiscalDeviceRepository,
	notes repository.NoteRepository,
	client FDMSClient,
	events EventPublisher,
	metrics Metrics,
	log zerolog.Logger,
) *FiscaliseUseCase {
	if events == nil {
		events = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &FiscaliseUseCase{
		invoices: invoices,
		devices:  devices,
		notes:    notes,
		client:   client,
		events:   events,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// Fiscalise envía la factura a FDMS. companyID acota la factura al tenant del operador.
// La bandera fiscalised se comprueba antes de cualquier llamada de red y solo se escribe
// tras una respuesta exitosa.
func (uc *FiscaliseUseCase) Fiscalise(ctx context.Context, companyID, invoiceID string) (*FiscaliseResult, error) {
	inv, err := uc.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Fiscal.Fiscalised {
		return nil, domain.ErrAlreadyFiscalised
	}
	device, err := uc.devices.GetByCompany(ctx, inv.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("buscar dispositivo fiscal: %w", err)
	}
	if device == nil {
		return nil, domain.ErrNoFiscalDevice
	}

	log := uc.log.With().Str("invoice", inv.Number).Str("device", device.Name).Logger()
	log.Info().Msg("iniciando fiscalización")

	receipt, err := domainfdms.BuildReceipt(inv)
	if err != nil {
		uc.metrics.RecordFiscalisation("invalid")
		uc.note(ctx, inv, "Fiscalisation Failed", "Fiscalisation process failed: "+err.Error(), entity.NoteLevelError)
		log.Warn().Err(err).Msg("payload fiscal inválido")
		return nil, err
	}

	resp, err := uc.client.SubmitReceipt(ctx, device, receipt)
	if err != nil {
		ferr := uc.failure(inv, err)
		uc.metrics.RecordFiscalisation("rejected")
		uc.note(ctx, inv, "Fiscalisation Error",
			fmt.Sprintf("Fiscalisation Failed (Code: %s)\n%s", ferr.Code, ferr.Message), entity.NoteLevelError)
		uc.publish(ctx, entity.FiscalEvent{
			Type:       entity.EventFiscalisationFailed,
			CompanyID:  inv.CompanyID,
			DeviceID:   device.ID,
			InvoiceID:  inv.ID,
			Code:       ferr.Code,
			OccurredAt: uc.now(),
		})
		log.Error().Str("code", ferr.Code).Int("status", ferr.Status).Bool("duplicate", ferr.Duplicate).Msg(ferr.Message)
		return nil, ferr
	}

	rec := uc.record(device, resp)
	if err := uc.invoices.MarkFiscalised(ctx, inv.ID, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyFiscalised) {
			log.Warn().Msg("la factura fue fiscalizada por otro proceso")
			return nil, err
		}
		return nil, fmt.Errorf("guardar resultado fiscal: %w", err)
	}
	inv.Fiscal = rec

	msg := fmt.Sprintf("Fiscalisation Successful!\nReceipt Number: %s\nVerification Code: %s\nFiscal Date: %s",
		orNA(rec.ReceiptNumber), orNA(rec.VerificationCode), orNA(resp.ReceiptFiscalDate))
	uc.metrics.RecordFiscalisation("ok")
	uc.note(ctx, inv, "Fiscalisation Successful", msg, entity.NoteLevelInfo)
	uc.publish(ctx, entity.FiscalEvent{
		Type:            entity.EventReceiptFiscalised,
		CompanyID:       inv.CompanyID,
		DeviceID:        device.ID,
		InvoiceID:       inv.ID,
		FiscalDayNo:     rec.FiscalDayNo,
		ReceiptGlobalNo: rec.ReceiptGlobalNumber,
		OccurredAt:      uc.now(),
	})
	log.Info().Str("receipt_global_no", rec.ReceiptGlobalNumber).Msg("factura fiscalizada")

	return &FiscaliseResult{
		Invoice:         inv,
		Record:          rec,
		VerificationURL: device.VerificationURL(),
		Message:         msg,
	}, nil
}

// GetInvoice factura acotada al tenant; ErrNotFound si no existe o pertenece a otra empresa.
// companyID vacío omite el filtro (procesos internos).
func (uc *FiscaliseUseCase) GetInvoice(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	inv, err := uc.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar factura: %w", err)
	}
	if inv == nil || (companyID != "" && inv.CompanyID != companyID) {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

// record mapea la respuesta al registro fiscal. Una fecha ilegible se reemplaza por la hora actual.
func (uc *FiscaliseUseCase) record(device *entity.FiscalDevice, resp *infrafdms.ReceiptResponse) entity.FiscalRecord {
	fiscalDate, ok := domainfdms.ParseFiscalDate(resp.ReceiptFiscalDate)
	if !ok {
		if resp.ReceiptFiscalDate != "" {
			uc.log.Warn().Str("raw", resp.ReceiptFiscalDate).Msg("formato de fecha fiscal no reconocido, se usa la hora actual")
		}
		fiscalDate = uc.now().Truncate(time.Second)
	}
	deviceID := device.DeviceID
	if resp.DeviceID != nil {
		deviceID = int(*resp.DeviceID)
	}
	return entity.FiscalRecord{
		QRURL:               resp.QRCodeURL,
		FiscalDate:          &fiscalDate,
		FiscalDeviceID:      deviceID,
		DeviceSerial:        device.DeviceSerial,
		ReceiptGlobalNumber: resp.ReceiptGlobalNo.String(),
		ReceiptNumber:       resp.ReceiptNumber.String(),
		FiscalDayNo:         resp.FiscalDayNo.String(),
		VerificationCode:    resp.VerificationCode,
		Fiscalised:          true,
	}
}

func (uc *FiscaliseUseCase) failure(inv *entity.Invoice, err error) *FiscalisationError {
	ferr := &FiscalisationError{InvoiceID: inv.ID, Code: infrafdms.CodeUnknown, Message: err.Error(), Err: err}
	if fe, ok := infrafdms.AsError(err); ok {
		ferr.Code = fe.Code
		ferr.Status = fe.Status
		ferr.OperationID = fe.OperationID
		ferr.Message = fe.Message
	}
	if ferr.Code == infrafdms.CodeDuplicateInvoice {
		ferr.Message = duplicateInvoiceMessage
		ferr.Duplicate = true
	}
	return ferr
}

func (uc *FiscaliseUseCase) note(ctx context.Context, inv *entity.Invoice, subject, body, level string) {
	n := &entity.Note{
		ID:           uuid.New().String(),
		CompanyID:    inv.CompanyID,
		ResourceType: entity.NoteResourceInvoice,
		ResourceID:   inv.ID,
		Subject:      subject,
		Body:         body,
		Level:        level,
		CreatedAt:    uc.now(),
	}
	if err := uc.notes.Create(context.WithoutCancel(ctx), n); err != nil {
		uc.log.Error().Err(err).Str("invoice", inv.Number).Msg("no se pudo registrar la nota")
	}
}

func (uc *FiscaliseUseCase) publish(ctx context.Context, ev entity.FiscalEvent) {
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("event", ev.Type).Msg("no se pudo publicar el evento")
	}
}
