// Package fdms: construcción del recibo fiscal ZIMRA (FDMS) a partir de una factura contable.
// Funciones puras: sin red ni persistencia, el payload se reconstruye en cada intento.
package fdms

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// Tipos de recibo FDMS.
const (
	ReceiptTypeFiscalInvoice = "FiscalInvoice"
	ReceiptTypeCreditNote    = "CreditNote"
	ReceiptTypeDebitNote     = "DebitNote"
)

// Tipos de línea de recibo.
const (
	LineTypeSale     = "Sale"
	LineTypeDiscount = "Discount"
)

const (
	MoneyTypeCash    = "Cash"
	PrintFormA4      = "InvoiceA4"
	maxLineNameRunes = 100
)

// ReceiptRequest cuerpo de POST /api/v1/receipts.
type ReceiptRequest struct {
	Receipt Receipt `json:"receipt"`
}

// Receipt cabecera del recibo fiscal.
type Receipt struct {
	ReceiptType              string           `json:"receiptType"`
	ReceiptCurrency          string           `json:"receiptCurrency"`
	InvoiceNo                string           `json:"invoiceNo"`
	BuyerData                *BuyerData       `json:"buyerData"` // null si el cliente no tiene VAT y TIN
	ReceiptNotes             string           `json:"receiptNotes"`
	CreditDebitNoteInvoiceNo string           `json:"creditDebitNoteInvoiceNo"`
	ReceiptLinesTaxInclusive bool             `json:"receiptLinesTaxInclusive"`
	ReceiptLines             []ReceiptLine    `json:"receiptLines"`
	ReceiptPayments          []ReceiptPayment `json:"receiptPayments"`
	ReceiptTotal             float64          `json:"receiptTotal"`
	ReceiptPrintForm         string           `json:"receiptPrintForm"`
}

// BuyerData datos del comprador registrado.
type BuyerData struct {
	BuyerRegisterName string        `json:"buyerRegisterName"`
	BuyerTradeName    string        `json:"buyerTradeName"`
	VATNumber         string        `json:"vatNumber"`
	BuyerTIN          string        `json:"buyerTIN"`
	BuyerContacts     BuyerContacts `json:"buyerContacts"`
	BuyerAddress      BuyerAddress  `json:"buyerAddress"`
}

type BuyerContacts struct {
	PhoneNo string `json:"phoneNo"`
	Email   string `json:"email"`
}

type BuyerAddress struct {
	Province string `json:"province"`
	City     string `json:"city"`
	Street   string `json:"street"`
	HouseNo  string `json:"houseNo"`
	District string `json:"district"`
}

// ReceiptLine línea de venta o descuento.
type ReceiptLine struct {
	ReceiptLineType     string   `json:"receiptLineType"`
	ReceiptLineNo       int      `json:"receiptLineNo"`
	ReceiptLineHSCode   string   `json:"receiptLineHSCode"`
	ReceiptLineName     string   `json:"receiptLineName"`
	ReceiptLinePrice    float64  `json:"receiptLinePrice"`
	ReceiptLineQuantity float64  `json:"receiptLineQuantity"`
	ReceiptLineTotal    float64  `json:"receiptLineTotal"`
	TaxPercent          *float64 `json:"taxPercent,omitempty"`
}

// ReceiptPayment forma de pago. Solo se reporta un pago en efectivo por el total.
type ReceiptPayment struct {
	MoneyTypeCode string  `json:"moneyTypeCode"`
	PaymentAmount float64 `json:"paymentAmount"`
}

// ReceiptTypeFor mapea el tipo de documento contable al tipo de recibo FDMS.
func ReceiptTypeFor(moveType string) string {
	switch moveType {
	case entity.MoveTypeOutRefund:
		return ReceiptTypeCreditNote
	case entity.MoveTypeInRefund:
		return ReceiptTypeDebitNote
	default:
		return ReceiptTypeFiscalInvoice
	}
}

// SignFor multiplicador de signo: -1 para CreditNote, +1 para el resto.
func SignFor(receiptType string) decimal.Decimal {
	if receiptType == ReceiptTypeCreditNote {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// BuildReceipt arma el payload FDMS. Falla antes de cualquier llamada de red ante
// inclusión de impuestos mezclada, productos sin código HS o factura sin cliente.
func BuildReceipt(inv *entity.Invoice) (*ReceiptRequest, error) {
	if inv == nil {
		return nil, domain.ErrInvalidInput
	}
	receiptType := ReceiptTypeFor(inv.MoveType)
	sign := SignFor(receiptType)

	inclusive, err := TaxInclusive(inv.Lines)
	if err != nil {
		return nil, err
	}
	buyer, err := BuildBuyerData(inv.Partner)
	if err != nil {
		return nil, err
	}
	lines, err := BuildLines(inv.Lines, sign)
	if err != nil {
		return nil, err
	}

	total := adjust(inv.AmountTotal, sign)
	creditDebitNo := ""
	if inv.IsRefund() {
		creditDebitNo = inv.ReversedEntryNumber
	}

	return &ReceiptRequest{Receipt: Receipt{
		ReceiptType:              receiptType,
		ReceiptCurrency:          inv.Currency,
		InvoiceNo:                inv.Number,
		BuyerData:                buyer,
		ReceiptNotes:             inv.Reference,
		CreditDebitNoteInvoiceNo: creditDebitNo,
		ReceiptLinesTaxInclusive: inclusive,
		ReceiptLines:             lines,
		ReceiptPayments:          []ReceiptPayment{{MoneyTypeCode: MoneyTypeCash, PaymentAmount: total}},
		ReceiptTotal:             total,
		ReceiptPrintForm:         PrintFormA4,
	}}, nil
}

// TaxInclusive revisa el primer impuesto de cada línea con cantidad positiva e impuestos.
// Sin líneas gravadas se asume impuesto incluido.
func TaxInclusive(lines []entity.InvoiceLine) (bool, error) {
	seen := map[bool]bool{}
	for _, l := range lines {
		if !l.Quantity.IsPositive() || len(l.Taxes) == 0 {
			continue
		}
		seen[l.Taxes[0].PriceInclude] = true
	}
	if len(seen) > 1 {
		return false, domain.ErrMixedTaxInclusion
	}
	for v := range seen {
		return v, nil
	}
	return true, nil
}

// BuildBuyerData solo reporta comprador si tiene VAT y TIN; en otro caso nil (no se rellena por defecto).
func BuildBuyerData(p *entity.Partner) (*BuyerData, error) {
	if p == nil {
		return nil, domain.ErrMissingPartner
	}
	if p.VAT == "" || p.TIN == "" {
		return nil, nil
	}
	trade := p.CommercialName
	if trade == "" {
		trade = p.Name
	}
	return &BuyerData{
		BuyerRegisterName: p.Name,
		BuyerTradeName:    trade,
		VATNumber:         p.VAT,
		BuyerTIN:          p.TIN,
		BuyerContacts:     BuyerContacts{PhoneNo: p.Phone, Email: p.Email},
		BuyerAddress: BuyerAddress{
			Province: p.Province,
			City:     p.City,
			Street:   p.Street,
			HouseNo:  p.Street2,
		},
	}, nil
}

// BuildLines emite una línea Sale por cada línea de producto y, si hay descuento, una línea
// Discount inmediatamente después. La numeración es correlativa sobre toda la secuencia.
func BuildLines(lines []entity.InvoiceLine, sign decimal.Decimal) ([]ReceiptLine, error) {
	hundred := decimal.NewFromInt(100)
	out := make([]ReceiptLine, 0, len(lines))
	for _, l := range lines {
		if !reportable(l) {
			continue
		}
		if l.Product.HSCode == "" {
			return nil, fmt.Errorf("%w: producto (%s)", domain.ErrMissingHSCode, l.Name)
		}

		qty := l.Quantity.InexactFloat64()
		sale := ReceiptLine{
			ReceiptLineType:     LineTypeSale,
			ReceiptLineNo:       len(out) + 1,
			ReceiptLineHSCode:   l.Product.HSCode,
			ReceiptLineName:     truncate(l.Name, maxLineNameRunes),
			ReceiptLinePrice:    adjust(l.PriceUnit, sign),
			ReceiptLineQuantity: qty,
			ReceiptLineTotal:    adjust(l.PriceUnit.Mul(l.Quantity), sign),
		}
		if len(l.Taxes) > 0 {
			pct := taxPercent(l.Taxes)
			sale.TaxPercent = &pct
		}
		out = append(out, sale)

		if l.Discount.IsPositive() {
			amount := l.PriceUnit.Mul(l.Discount).Div(hundred)
			out = append(out, ReceiptLine{
				ReceiptLineType:     LineTypeDiscount,
				ReceiptLineNo:       len(out) + 1,
				ReceiptLineHSCode:   sale.ReceiptLineHSCode,
				ReceiptLineName:     sale.ReceiptLineName + " (Discount)",
				ReceiptLinePrice:    -adjust(amount, sign),
				ReceiptLineQuantity: qty,
				ReceiptLineTotal:    -adjust(amount.Mul(l.Quantity), sign),
				TaxPercent:          sale.TaxPercent,
			})
		}
	}
	return out, nil
}

// reportable: cantidad positiva, sin secciones/notas y con producto asociado.
func reportable(l entity.InvoiceLine) bool {
	if !l.Quantity.IsPositive() || l.Product == nil {
		return false
	}
	return l.DisplayType == "" || l.DisplayType == entity.DisplayTypeProduct
}

func taxPercent(taxes []entity.Tax) float64 {
	sum := decimal.Zero
	for _, t := range taxes {
		sum = sum.Add(t.Amount)
	}
	return sum.InexactFloat64()
}

func adjust(amount, sign decimal.Decimal) float64 {
	return amount.Mul(sign).InexactFloat64()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
