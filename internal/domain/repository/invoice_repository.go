package repository

import (
	"context"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// InvoiceRepository modelo de lectura de facturas y escritura del resultado fiscal.
type InvoiceRepository interface {
	// GetByID carga cabecera, cliente, líneas, productos e impuestos. nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// MarkFiscalised escribe el registro fiscal solo si la factura aún no está fiscalizada;
	// devuelve domain.ErrAlreadyFiscalised si otro proceso ganó la carrera.
	MarkFiscalised(ctx context.Context, id string, rec entity.FiscalRecord) error
}
