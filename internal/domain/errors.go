package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")

	// Fiscalización
	ErrAlreadyFiscalised = errors.New("la factura ya está fiscalizada")
	ErrNoFiscalDevice    = errors.New("no hay dispositivo fiscal configurado para la empresa")
	ErrMissingPartner    = errors.New("la información del cliente es obligatoria para fiscalizar")
	ErrMixedTaxInclusion = errors.New("tipos de inclusión de impuesto mezclados: todas las líneas deben ser con impuesto incluido o todas sin impuesto incluido")
	ErrMissingHSCode     = errors.New("producto sin código HS")
)

// IsInputError informa si err es un error de datos de entrada detectado antes de contactar FDMS.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingPartner) ||
		errors.Is(err, ErrMixedTaxInclusion) ||
		errors.Is(err, ErrMissingHSCode)
}
