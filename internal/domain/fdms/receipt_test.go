package fdms_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/fdms"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func vat15(inclusive bool) []entity.Tax {
	return []entity.Tax{{Name: "VAT 15%", Amount: d("15"), PriceInclude: inclusive}}
}

func line(name, qty, price, discount, hs string, taxes []entity.Tax) entity.InvoiceLine {
	return entity.InvoiceLine{
		ID:        name,
		Name:      name,
		Quantity:  d(qty),
		PriceUnit: d(price),
		Discount:  d(discount),
		Product:   &entity.Product{ID: "p-" + name, Name: name, HSCode: hs},
		Taxes:     taxes,
	}
}

func baseInvoice(moveType string, lines ...entity.InvoiceLine) *entity.Invoice {
	return &entity.Invoice{
		ID:          "inv-1",
		CompanyID:   "co-1",
		Number:      "INV/2024/0001",
		MoveType:    moveType,
		Currency:    "USD",
		Reference:   "PO-77",
		AmountTotal: d("230"),
		Partner:     &entity.Partner{Name: "Acme", VAT: "10001", TIN: "2000000001", City: "Harare"},
		Lines:       lines,
	}
}

// ── tipo de recibo y signo ────────────────────────────────────────────────────

func TestReceiptTypeFor(t *testing.T) {
	assert.Equal(t, fdms.ReceiptTypeCreditNote, fdms.ReceiptTypeFor(entity.MoveTypeOutRefund))
	assert.Equal(t, fdms.ReceiptTypeDebitNote, fdms.ReceiptTypeFor(entity.MoveTypeInRefund))
	assert.Equal(t, fdms.ReceiptTypeFiscalInvoice, fdms.ReceiptTypeFor(entity.MoveTypeOutInvoice))
	assert.Equal(t, fdms.ReceiptTypeFiscalInvoice, fdms.ReceiptTypeFor("entry"))
}

func TestBuildReceipt_FacturaConservaSigno(t *testing.T) {
	inv := baseInvoice(entity.MoveTypeOutInvoice,
		line("Cement", "2", "100", "0", "2523", vat15(true)),
		line("Sand", "1", "30", "0", "2505", vat15(true)),
	)
	req, err := fdms.BuildReceipt(inv)
	require.NoError(t, err)

	r := req.Receipt
	assert.Equal(t, fdms.ReceiptTypeFiscalInvoice, r.ReceiptType)
	assert.Equal(t, "USD", r.ReceiptCurrency)
	assert.Equal(t, "INV/2024/0001", r.InvoiceNo)
	assert.Equal(t, "PO-77", r.ReceiptNotes)
	assert.Empty(t, r.CreditDebitNoteInvoiceNo)
	assert.True(t, r.ReceiptLinesTaxInclusive)
	assert.Equal(t, 230.0, r.ReceiptTotal)
	assert.Equal(t, "InvoiceA4", r.ReceiptPrintForm)

	require.Len(t, r.ReceiptLines, 2)
	assert.Equal(t, 100.0, r.ReceiptLines[0].ReceiptLinePrice)
	assert.Equal(t, 200.0, r.ReceiptLines[0].ReceiptLineTotal)
	require.NotNil(t, r.ReceiptLines[0].TaxPercent)
	assert.Equal(t, 15.0, *r.ReceiptLines[0].TaxPercent)

	require.Len(t, r.ReceiptPayments, 1, "solo se reporta un pago en efectivo")
	assert.Equal(t, "Cash", r.ReceiptPayments[0].MoneyTypeCode)
	assert.Equal(t, 230.0, r.ReceiptPayments[0].PaymentAmount)
}

// Para CreditNote cada monto es la negación del monto calculado sin signo.
func TestBuildReceipt_CreditNoteNiegaTodosLosMontos(t *testing.T) {
	lines := []entity.InvoiceLine{
		line("Cement", "2", "100", "10", "2523", vat15(false)),
		line("Sand", "3", "12.5", "0", "2505", vat15(false)),
	}
	plain, err := fdms.BuildReceipt(baseInvoice(entity.MoveTypeOutInvoice, lines...))
	require.NoError(t, err)

	refund := baseInvoice(entity.MoveTypeOutRefund, lines...)
	refund.ReversedEntryNumber = "INV/2024/0000"
	credit, err := fdms.BuildReceipt(refund)
	require.NoError(t, err)

	assert.Equal(t, fdms.ReceiptTypeCreditNote, credit.Receipt.ReceiptType)
	assert.Equal(t, "INV/2024/0000", credit.Receipt.CreditDebitNoteInvoiceNo)
	assert.Equal(t, -plain.Receipt.ReceiptTotal, credit.Receipt.ReceiptTotal)
	assert.Equal(t, -plain.Receipt.ReceiptPayments[0].PaymentAmount, credit.Receipt.ReceiptPayments[0].PaymentAmount)

	require.Len(t, credit.Receipt.ReceiptLines, len(plain.Receipt.ReceiptLines))
	for i, cl := range credit.Receipt.ReceiptLines {
		pl := plain.Receipt.ReceiptLines[i]
		assert.Equal(t, -pl.ReceiptLinePrice, cl.ReceiptLinePrice, "línea %d precio", cl.ReceiptLineNo)
		assert.Equal(t, -pl.ReceiptLineTotal, cl.ReceiptLineTotal, "línea %d total", cl.ReceiptLineNo)
		assert.Equal(t, pl.ReceiptLineQuantity, cl.ReceiptLineQuantity, "la cantidad no cambia de signo")
	}
}

func TestBuildReceipt_DebitNoteConservaSigno(t *testing.T) {
	inv := baseInvoice(entity.MoveTypeInRefund, line("Cement", "1", "50", "0", "2523", nil))
	req, err := fdms.BuildReceipt(inv)
	require.NoError(t, err)
	assert.Equal(t, fdms.ReceiptTypeDebitNote, req.Receipt.ReceiptType)
	assert.Equal(t, 50.0, req.Receipt.ReceiptLines[0].ReceiptLinePrice)
	assert.Nil(t, req.Receipt.ReceiptLines[0].TaxPercent, "sin impuestos no se envía taxPercent")
}

// ── líneas de descuento ───────────────────────────────────────────────────────

func TestBuildLines_DescuentoSigueASuVenta(t *testing.T) {
	inv := baseInvoice(entity.MoveTypeOutInvoice,
		line("Cement", "4", "25", "10", "2523", vat15(true)),
		line("Sand", "1", "30", "0", "2505", vat15(true)),
		line("Bricks", "10", "2", "50", "6901", vat15(true)),
	)
	req, err := fdms.BuildReceipt(inv)
	require.NoError(t, err)

	got := req.Receipt.ReceiptLines
	require.Len(t, got, 5)

	types := make([]string, len(got))
	for i, l := range got {
		types[i] = l.ReceiptLineType
		assert.Equal(t, i+1, l.ReceiptLineNo, "numeración correlativa sobre toda la secuencia")
	}
	assert.Equal(t, []string{"Sale", "Discount", "Sale", "Sale", "Discount"}, types)

	sale, disc := got[0], got[1]
	assert.Equal(t, sale.ReceiptLineHSCode, disc.ReceiptLineHSCode)
	assert.Equal(t, *sale.TaxPercent, *disc.TaxPercent)
	assert.Equal(t, "Cement (Discount)", disc.ReceiptLineName)
	assert.Equal(t, -2.5, disc.ReceiptLinePrice, "precio = -(25 * 10%)")
	assert.Equal(t, -10.0, disc.ReceiptLineTotal, "total = -(2.5 * 4)")
	assert.Equal(t, sale.ReceiptLineQuantity, disc.ReceiptLineQuantity)

	assert.Equal(t, -1.0, got[4].ReceiptLinePrice)
	assert.Equal(t, -10.0, got[4].ReceiptLineTotal)
}

func TestBuildLines_FiltraLineasNoReportables(t *testing.T) {
	section := line("Section", "1", "0", "0", "", nil)
	section.DisplayType = entity.DisplayTypeSection
	section.Product = nil
	noProduct := line("Freight", "1", "10", "0", "", nil)
	noProduct.Product = nil
	zeroQty := line("Returned", "0", "10", "0", "", nil)

	inv := baseInvoice(entity.MoveTypeOutInvoice,
		section, noProduct, zeroQty,
		line("Cement", "1", "10", "0", "2523", nil),
	)
	req, err := fdms.BuildReceipt(inv)
	require.NoError(t, err)
	require.Len(t, req.Receipt.ReceiptLines, 1)
	assert.Equal(t, "Cement", req.Receipt.ReceiptLines[0].ReceiptLineName)
	assert.Equal(t, 1, req.Receipt.ReceiptLines[0].ReceiptLineNo)
}

func TestBuildLines_NombreTruncadoA100(t *testing.T) {
	long := strings.Repeat("é", 130)
	inv := baseInvoice(entity.MoveTypeOutInvoice, line(long, "1", "1", "0", "2523", nil))
	req, err := fdms.BuildReceipt(inv)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 100), req.Receipt.ReceiptLines[0].ReceiptLineName)
}

// ── errores de entrada ────────────────────────────────────────────────────────

func TestBuildReceipt_SinCodigoHSNombraLaLinea(t *testing.T) {
	inv := baseInvoice(entity.MoveTypeOutInvoice,
		line("Cement", "1", "10", "0", "2523", nil),
		line("Mystery box", "1", "10", "0", "", nil),
	)
	_, err := fdms.BuildReceipt(inv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingHSCode))
	assert.Contains(t, err.Error(), "Mystery box")
	assert.True(t, domain.IsInputError(err))
}

func TestBuildReceipt_InclusionMezcladaFalla(t *testing.T) {
	inv := baseInvoice(entity.MoveTypeOutInvoice,
		line("Cement", "1", "10", "0", "2523", vat15(true)),
		line("Sand", "1", "10", "0", "2505", vat15(false)),
	)
	_, err := fdms.BuildReceipt(inv)
	assert.ErrorIs(t, err, domain.ErrMixedTaxInclusion)
}

func TestTaxInclusive_SinImpuestosAsumeIncluido(t *testing.T) {
	inc, err := fdms.TaxInclusive([]entity.InvoiceLine{line("x", "1", "1", "0", "1", nil)})
	require.NoError(t, err)
	assert.True(t, inc)

	inc, err = fdms.TaxInclusive([]entity.InvoiceLine{line("x", "1", "1", "0", "1", vat15(false))})
	require.NoError(t, err)
	assert.False(t, inc)
}

// ── comprador ─────────────────────────────────────────────────────────────────

func TestBuildBuyerData(t *testing.T) {
	_, err := fdms.BuildBuyerData(nil)
	assert.ErrorIs(t, err, domain.ErrMissingPartner)

	buyer, err := fdms.BuildBuyerData(&entity.Partner{Name: "Walk-in", VAT: "123"})
	require.NoError(t, err)
	assert.Nil(t, buyer, "sin TIN el comprador se omite")

	buyer, err = fdms.BuildBuyerData(&entity.Partner{Name: "Acme", VAT: "1", TIN: "2", Street2: "12B"})
	require.NoError(t, err)
	require.NotNil(t, buyer)
	assert.Equal(t, "Acme", buyer.BuyerTradeName)
	assert.Equal(t, "12B", buyer.BuyerAddress.HouseNo)
}

func TestBuildReceipt_BuyerDataNuloSeSerializaComoNull(t *testing.T) {
	inv := baseInvoice(entity.MoveTypeOutInvoice, line("Cement", "1", "10", "0", "2523", nil))
	inv.Partner = &entity.Partner{Name: "Walk-in"}
	req, err := fdms.BuildReceipt(inv)
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"buyerData":null`)
	assert.Contains(t, string(raw), `"receipt":{`)
}

// ── fecha fiscal ──────────────────────────────────────────────────────────────

func TestParseFiscalDate(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	got, ok := fdms.ParseFiscalDate("2024-03-09T14:05:07.123")
	require.True(t, ok)
	assert.Equal(t, want, got, "los milisegundos se truncan")

	got, ok = fdms.ParseFiscalDate("2024-03-09T14:05:07")
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = fdms.ParseFiscalDate("2024-03-09T14:05:07Z")
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	_, ok = fdms.ParseFiscalDate("09/03/2024")
	assert.False(t, ok)
	_, ok = fdms.ParseFiscalDate("")
	assert.False(t, ok)
}
