package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/application/dto"
	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/domain"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
)

// writeError traduce errores de dominio y de FDMS a respuestas HTTP. Los errores no
// clasificados se registran y se responden como 500 sin detalle interno.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var ferr *fiscal.FiscalisationError
	if errors.As(err, &ferr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.FDMSErrorResponse{
			Code:        ferr.Code,
			Message:     ferr.Message,
			Status:      ferr.Status,
			OperationID: ferr.OperationID,
			Duplicate:   ferr.Duplicate,
		})
	}
	if fe, ok := infrafdms.AsError(err); ok {
		return c.Status(fiber.StatusBadGateway).JSON(dto.FDMSErrorResponse{
			Code:        fe.Code,
			Message:     fe.Message,
			Status:      fe.Status,
			OperationID: fe.OperationID,
		})
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case domain.IsInputError(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNoFiscalDevice):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "NO_FISCAL_DEVICE", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadyFiscalised):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_FISCALISED", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
