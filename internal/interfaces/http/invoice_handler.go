package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/application/dto"
	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// InvoiceHandler fiscalización de facturas y consulta de su registro fiscal.
type InvoiceHandler struct {
	fiscalise *fiscal.FiscaliseUseCase
	devices   *fiscal.DeviceUseCase
	log       zerolog.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(fiscalise *fiscal.FiscaliseUseCase, devices *fiscal.DeviceUseCase, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{fiscalise: fiscalise, devices: devices, log: log}
}

// Fiscalise godoc
// @Summary      Enviar factura a FDMS
// @Description  Envía la factura como recibo fiscal. Con duplicate=true el número ya existe en FDMS y requiere conciliación manual.
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.FiscalRecordResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.FDMSErrorResponse
// @Router       /api/invoices/{id}/fiscalise [post]
func (h *InvoiceHandler) Fiscalise(c *fiber.Ctx) error {
	res, err := h.fiscalise.Fiscalise(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.NewFiscalRecordResponse(res.Invoice)
	out.VerificationURL = res.VerificationURL
	out.Message = res.Message
	return c.JSON(out)
}

// Fiscal godoc
// @Summary      Registro fiscal de la factura
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.FiscalRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/fiscal [get]
func (h *InvoiceHandler) Fiscal(c *fiber.Ctx) error {
	inv, err := h.fiscalise.GetInvoice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewFiscalRecordResponse(inv))
}

// Notes godoc
// @Summary      Notas de fiscalización de la factura
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "ID de la factura"
// @Param        limit  query  int     false  "máximo de notas (50 por defecto)"
// @Success      200  {array}  dto.NoteResponse
// @Router       /api/invoices/{id}/notes [get]
func (h *InvoiceHandler) Notes(c *fiber.Ctx) error {
	inv, err := h.fiscalise.GetInvoice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	notes, err := h.devices.ListNotes(c.Context(), inv.CompanyID, entity.NoteResourceInvoice, inv.ID, c.QueryInt("limit"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewNoteResponses(notes))
}
