package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo modelo de lectura de facturas (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// GetByID carga cabecera, cliente, líneas (en orden de secuencia), productos e impuestos.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `
		SELECT i.id, i.company_id, i.number, i.move_type, i.currency,
		       COALESCE(i.reference, ''), COALESCE(i.reversed_entry_number, ''), i.amount_total,
		       COALESCE(i.qr_url, ''), i.fiscal_date, COALESCE(i.fiscal_device_id, 0),
		       COALESCE(i.device_serial, ''), COALESCE(i.receipt_global_number, ''),
		       COALESCE(i.receipt_number, ''), COALESCE(i.fiscal_day_no, ''),
		       COALESCE(i.verification_code, ''), i.fiscalised,
		       i.created_at, i.updated_at,
		       p.id, p.name, p.commercial_name, p.vat, p.tin, p.phone, p.email,
		       p.province, p.city, p.street, p.street2
		FROM invoices i
		LEFT JOIN partners p ON p.id = i.partner_id
		WHERE i.id = $1`

	var (
		inv          entity.Invoice
		fiscalDate   *time.Time
		partnerID    *string
		partnerName  *string
		partnerAttrs [9]*string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.Number, &inv.MoveType, &inv.Currency,
		&inv.Reference, &inv.ReversedEntryNumber, &inv.AmountTotal,
		&inv.Fiscal.QRURL, &fiscalDate, &inv.Fiscal.FiscalDeviceID,
		&inv.Fiscal.DeviceSerial, &inv.Fiscal.ReceiptGlobalNumber,
		&inv.Fiscal.ReceiptNumber, &inv.Fiscal.FiscalDayNo,
		&inv.Fiscal.VerificationCode, &inv.Fiscal.Fiscalised,
		&inv.CreatedAt, &inv.UpdatedAt,
		&partnerID, &partnerName,
		&partnerAttrs[0], &partnerAttrs[1], &partnerAttrs[2], &partnerAttrs[3], &partnerAttrs[4],
		&partnerAttrs[5], &partnerAttrs[6], &partnerAttrs[7], &partnerAttrs[8],
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Fiscal.FiscalDate = fiscalDate
	if partnerID != nil {
		inv.Partner = &entity.Partner{
			Name:           derefString(partnerName),
			CommercialName: derefString(partnerAttrs[0]),
			VAT:            derefString(partnerAttrs[1]),
			TIN:            derefString(partnerAttrs[2]),
			Phone:          derefString(partnerAttrs[3]),
			Email:          derefString(partnerAttrs[4]),
			Province:       derefString(partnerAttrs[5]),
			City:           derefString(partnerAttrs[6]),
			Street:         derefString(partnerAttrs[7]),
			Street2:        derefString(partnerAttrs[8]),
		}
	}

	lines, err := r.lines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

// lines carga las líneas con su producto y, en una segunda consulta, sus impuestos.
func (r *InvoiceRepo) lines(ctx context.Context, invoiceID string) ([]entity.InvoiceLine, error) {
	query := `
		SELECT l.id, l.name, l.display_type, l.quantity, l.price_unit, l.discount,
		       pr.id, pr.name, pr.hs_code
		FROM invoice_lines l
		LEFT JOIN products pr ON pr.id = l.product_id
		WHERE l.invoice_id = $1
		ORDER BY l.sequence, l.id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()

	var (
		out   []entity.InvoiceLine
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			l                     entity.InvoiceLine
			prodID, prodName, hsc *string
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.DisplayType, &l.Quantity, &l.PriceUnit, &l.Discount,
			&prodID, &prodName, &hsc); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		if prodID != nil {
			l.Product = &entity.Product{ID: *prodID, Name: derefString(prodName), HSCode: derefString(hsc)}
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	taxRows, err := r.q.Query(ctx, `
		SELECT lt.line_id, t.name, t.amount, t.price_include
		FROM invoice_line_taxes lt
		JOIN taxes t ON t.id = lt.tax_id
		JOIN invoice_lines l ON l.id = lt.line_id
		WHERE l.invoice_id = $1
		ORDER BY lt.line_id, lt.position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list line taxes: %w", err)
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var (
			lineID string
			tax    entity.Tax
			amount decimal.Decimal
		)
		if err := taxRows.Scan(&lineID, &tax.Name, &amount, &tax.PriceInclude); err != nil {
			return nil, fmt.Errorf("scan line tax: %w", err)
		}
		tax.Amount = amount
		if i, ok := index[lineID]; ok {
			out[i].Taxes = append(out[i].Taxes, tax)
		}
	}
	return out, taxRows.Err()
}

// MarkFiscalised escritura condicional del registro fiscal: solo afecta filas con
// fiscalised = false. Sin filas afectadas distingue entre factura inexistente y ya fiscalizada.
func (r *InvoiceRepo) MarkFiscalised(ctx context.Context, id string, rec entity.FiscalRecord) error {
	query := `
		UPDATE invoices
		SET qr_url                = $2,
		    fiscal_date           = $3,
		    fiscal_device_id      = $4,
		    device_serial         = $5,
		    receipt_global_number = $6,
		    receipt_number        = $7,
		    fiscal_day_no         = $8,
		    verification_code     = $9,
		    fiscalised            = true,
		    updated_at            = now()
		WHERE id = $1 AND fiscalised = false`
	cmd, err := r.q.Exec(ctx, query, id,
		nullIfEmpty(rec.QRURL), rec.FiscalDate, rec.FiscalDeviceID, nullIfEmpty(rec.DeviceSerial),
		nullIfEmpty(rec.ReceiptGlobalNumber), nullIfEmpty(rec.ReceiptNumber),
		nullIfEmpty(rec.FiscalDayNo), nullIfEmpty(rec.VerificationCode),
	)
	if err != nil {
		return fmt.Errorf("mark invoice fiscalised: %w", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check invoice: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyFiscalised
}
