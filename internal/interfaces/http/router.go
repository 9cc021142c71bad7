package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/application/auth"
	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/application/usecase"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	CompanyUC   *usecase.CompanyUseCase
	DeviceUC    *fiscal.DeviceUseCase
	DayUC       *fiscal.DayUseCase
	FiscaliseUC *fiscal.FiscaliseUseCase
	JWTSecret   string
	Logger      zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Alta de empresa (público: precede al primer usuario)
	companyHandler := NewCompanyHandler(deps.CompanyUC, deps.Logger)
	api.Post("/companies", companyHandler.Create)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	protected.Get("/companies/me", companyHandler.Current)

	devices := protected.Group("/fiscal-devices")
	deviceHandler := NewFiscalDeviceHandler(deps.DeviceUC, deps.DayUC, deps.Logger)
	devices.Post("/", RequireRole(entity.RoleAdmin), deviceHandler.Create)
	devices.Get("/", deviceHandler.List)
	devices.Get("/:id", deviceHandler.GetByID)
	devices.Post("/:id/token", deviceHandler.RefreshToken)
	devices.Post("/:id/day/open", deviceHandler.OpenDay)
	devices.Post("/:id/day/close", deviceHandler.CloseDay)
	devices.Post("/:id/status", deviceHandler.CheckStatus)
	devices.Get("/:id/notes", deviceHandler.Notes)

	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.FiscaliseUC, deps.DeviceUC, deps.Logger)
	invoices.Post("/:id/fiscalise", invoiceHandler.Fiscalise)
	invoices.Get("/:id/fiscal", invoiceHandler.Fiscal)
	invoices.Get("/:id/notes", invoiceHandler.Notes)
}
