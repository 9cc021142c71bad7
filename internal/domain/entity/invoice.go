package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento contable.
const (
	MoveTypeOutInvoice = "out_invoice"
	MoveTypeOutRefund  = "out_refund"
	MoveTypeInInvoice  = "in_invoice"
	MoveTypeInRefund   = "in_refund"
)

// Tipos de línea que no se reportan (secciones y notas).
const (
	DisplayTypeProduct = "product"
	DisplayTypeSection = "line_section"
	DisplayTypeNote    = "line_note"
)

// Invoice factura de la aplicación contable con los campos de fiscalización escritos tras el envío a FDMS.
type Invoice struct {
	ID                  string
	CompanyID           string
	Number              string // número de la factura (invoiceNo en FDMS)
	MoveType            string
	Currency            string
	Reference           string
	ReversedEntryNumber string // factura original para notas crédito/débito
	AmountTotal         decimal.Decimal
	Partner             *Partner
	Lines               []InvoiceLine
	Fiscal              FiscalRecord
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsRefund informa si el documento es una nota crédito o débito.
func (i *Invoice) IsRefund() bool {
	return i.MoveType == MoveTypeOutRefund || i.MoveType == MoveTypeInRefund
}

// Partner cliente de la factura.
type Partner struct {
	Name           string
	CommercialName string
	VAT            string
	TIN            string
	Phone          string
	Email          string
	Province       string
	City           string
	Street         string
	Street2        string
}

// InvoiceLine línea de la factura.
type InvoiceLine struct {
	ID          string
	Name        string
	DisplayType string // "" o product = línea de producto
	Quantity    decimal.Decimal
	PriceUnit   decimal.Decimal
	Discount    decimal.Decimal // porcentaje 0-100
	Product     *Product
	Taxes       []Tax
}

// Tax impuesto aplicado a una línea. Amount es porcentaje (ej. 15 = 15%).
type Tax struct {
	Name         string
	Amount       decimal.Decimal
	PriceInclude bool
}

// FiscalRecord registro de envío a FDMS. Una vez Fiscalised es inmutable.
type FiscalRecord struct {
	QRURL               string
	FiscalDate          *time.Time
	FiscalDeviceID      int
	DeviceSerial        string
	ReceiptGlobalNumber string
	ReceiptNumber       string
	FiscalDayNo         string
	VerificationCode    string
	Fiscalised          bool
}
