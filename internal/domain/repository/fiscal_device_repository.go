package repository

import (
	"context"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// FiscalDeviceRepository persistencia de dispositivos fiscales.
// Las lecturas devuelven nil, nil cuando el dispositivo no existe.
type FiscalDeviceRepository interface {
	// Create devuelve domain.ErrDuplicate si (company_id, device_id) ya existe.
	Create(ctx context.Context, d *entity.FiscalDevice) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDevice, error)
	// GetByCompany dispositivo configurado para la empresa (el más antiguo si hay varios).
	GetByCompany(ctx context.Context, companyID string) (*entity.FiscalDevice, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.FiscalDevice, error)
	ListAll(ctx context.Context) ([]*entity.FiscalDevice, error)
	ListByDayStatus(ctx context.Context, status string) ([]*entity.FiscalDevice, error)

	// Escrituras atómicas de varios campos.
	SaveTokens(ctx context.Context, id string, tokens entity.DeviceTokens) error
	RecordError(ctx context.Context, id string, diag entity.DeviceDiagnostic) error
	UpdateDayState(ctx context.Context, id string, upd entity.DayStateUpdate) error
}
