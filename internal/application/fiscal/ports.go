package fiscal

import (
	"context"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	domainfdms "github.com/jhoicas/zimra-fiscal/internal/domain/fdms"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
)

var _ FDMSClient = (*infrafdms.Client)(nil)

// FDMSClient puerto hacia el servicio fiscal. Los fallos remotos y de transporte son
// *infrafdms.Error; un fallo al persistir la sesión llega envuelto tal cual.
type FDMSClient interface {
	EnsureValidToken(ctx context.Context, d *entity.FiscalDevice) error
	AcquireToken(ctx context.Context, d *entity.FiscalDevice) error
	OpenDay(ctx context.Context, d *entity.FiscalDevice) (*infrafdms.OpenDayResponse, error)
	CloseDay(ctx context.Context, d *entity.FiscalDevice) (*infrafdms.CloseDayResponse, error)
	GetStatus(ctx context.Context, d *entity.FiscalDevice) (*infrafdms.StatusResponse, error)
	SubmitReceipt(ctx context.Context, d *entity.FiscalDevice, receipt *domainfdms.ReceiptRequest) (*infrafdms.ReceiptResponse, error)
}

// EventPublisher publica eventos de integración. Un fallo de publicación nunca revierte la operación.
type EventPublisher interface {
	Publish(ctx context.Context, ev entity.FiscalEvent) error
}

// Metrics contadores de negocio de las tareas programadas y la fiscalización.
type Metrics interface {
	RecordBatch(job, result string)
	RecordFiscalisation(result string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, entity.FiscalEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordBatch(string, string) {}
func (nopMetrics) RecordFiscalisation(string) {}
