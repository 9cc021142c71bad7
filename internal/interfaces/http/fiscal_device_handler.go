package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/application/dto"
	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// FiscalDeviceHandler administración de dispositivos y operaciones del día fiscal.
type FiscalDeviceHandler struct {
	devices *fiscal.DeviceUseCase
	days    *fiscal.DayUseCase
	log     zerolog.Logger
}

// NewFiscalDeviceHandler construye el handler.
func NewFiscalDeviceHandler(devices *fiscal.DeviceUseCase, days *fiscal.DayUseCase, log zerolog.Logger) *FiscalDeviceHandler {
	return &FiscalDeviceHandler{devices: devices, days: days, log: log}
}

// Create godoc
// @Summary      Registrar dispositivo fiscal
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateFiscalDeviceRequest  true  "datos del dispositivo"
// @Success      201   {object}  dto.FiscalDeviceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/fiscal-devices [post]
func (h *FiscalDeviceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateFiscalDeviceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	d, err := h.devices.CreateDevice(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewFiscalDeviceResponse(d))
}

// List godoc
// @Summary      Listar dispositivos de la empresa
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  dto.FiscalDeviceResponse
// @Router       /api/fiscal-devices [get]
func (h *FiscalDeviceHandler) List(c *fiber.Ctx) error {
	list, err := h.devices.ListDevices(c.Context(), GetCompanyID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.FiscalDeviceResponse, 0, len(list))
	for _, d := range list {
		out = append(out, dto.NewFiscalDeviceResponse(d))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener dispositivo
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID del dispositivo"
// @Success      200  {object}  dto.FiscalDeviceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal-devices/{id} [get]
func (h *FiscalDeviceHandler) GetByID(c *fiber.Ctx) error {
	d, err := h.devices.GetDevice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewFiscalDeviceResponse(d))
}

// RefreshToken godoc
// @Summary      Obtener un token nuevo de FDMS
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID del dispositivo"
// @Success      200  {object}  dto.FiscalDeviceResponse
// @Failure      502  {object}  dto.FDMSErrorResponse
// @Router       /api/fiscal-devices/{id}/token [post]
func (h *FiscalDeviceHandler) RefreshToken(c *fiber.Ctx) error {
	d, err := h.devices.GetDevice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.days.RefreshToken(c.Context(), d); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewFiscalDeviceResponse(d))
}

// OpenDay godoc
// @Summary      Abrir día fiscal
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID del dispositivo"
// @Success      200  {object}  dto.DayOperationResponse
// @Failure      502  {object}  dto.FDMSErrorResponse
// @Router       /api/fiscal-devices/{id}/day/open [post]
func (h *FiscalDeviceHandler) OpenDay(c *fiber.Ctx) error {
	return h.dayOperation(c, h.days.OpenDay)
}

// CloseDay godoc
// @Summary      Cerrar día fiscal
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID del dispositivo"
// @Success      200  {object}  dto.DayOperationResponse
// @Failure      502  {object}  dto.FDMSErrorResponse
// @Router       /api/fiscal-devices/{id}/day/close [post]
func (h *FiscalDeviceHandler) CloseDay(c *fiber.Ctx) error {
	return h.dayOperation(c, h.days.CloseDay)
}

// CheckStatus godoc
// @Summary      Consultar estado del dispositivo en FDMS
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string  true  "ID del dispositivo"
// @Success      200  {object}  dto.DayOperationResponse
// @Failure      502  {object}  dto.FDMSErrorResponse
// @Router       /api/fiscal-devices/{id}/status [post]
func (h *FiscalDeviceHandler) CheckStatus(c *fiber.Ctx) error {
	return h.dayOperation(c, h.days.CheckStatus)
}

// Notes godoc
// @Summary      Notas del dispositivo (más recientes primero)
// @Tags         fiscal-devices
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "ID del dispositivo"
// @Param        limit  query  int     false  "máximo de notas (50 por defecto)"
// @Success      200  {array}  dto.NoteResponse
// @Router       /api/fiscal-devices/{id}/notes [get]
func (h *FiscalDeviceHandler) Notes(c *fiber.Ctx) error {
	d, err := h.devices.GetDevice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	notes, err := h.devices.ListNotes(c.Context(), d.CompanyID, entity.NoteResourceDevice, d.ID, c.QueryInt("limit"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewNoteResponses(notes))
}

type dayOp func(ctx context.Context, d *entity.FiscalDevice) (*fiscal.DayResult, error)

func (h *FiscalDeviceHandler) dayOperation(c *fiber.Ctx, op dayOp) error {
	d, err := h.devices.GetDevice(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := op(c.Context(), d)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.DayOperationResponse{
		Skipped:         res.Skipped,
		FiscalDayNo:     res.FiscalDayNo,
		FiscalDayStatus: res.FiscalDayStatus,
		FiscalDayClosed: res.FiscalDayClosed,
		LastReceiptNo:   res.LastReceiptNo,
		Message:         res.Message,
		Device:          dto.NewFiscalDeviceResponse(res.Device),
	})
}
