package entity

import "time"

// Tipos de evento fiscal publicados hacia otros servicios.
const (
	EventDayOpened           = "fiscal_day.opened"
	EventDayClosed           = "fiscal_day.closed"
	EventStatusChecked       = "device.status_checked"
	EventReceiptFiscalised   = "receipt.fiscalised"
	EventFiscalisationFailed = "receipt.fiscalisation_failed"
)

// FiscalEvent evento de integración. El consumidor no debe asumir entrega exactamente una vez.
type FiscalEvent struct {
	Type            string    `json:"type"`
	CompanyID       string    `json:"company_id"`
	DeviceID        string    `json:"device_id,omitempty"`
	InvoiceID       string    `json:"invoice_id,omitempty"`
	FiscalDayNo     string    `json:"fiscal_day_no,omitempty"`
	ReceiptGlobalNo string    `json:"receipt_global_no,omitempty"`
	Code            string    `json:"code,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Key clave de partición: la factura si existe, si no el dispositivo.
func (e FiscalEvent) Key() string {
	if e.InvoiceID != "" {
		return e.InvoiceID
	}
	return e.DeviceID
}
