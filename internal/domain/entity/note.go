package entity

import "time"

// Tipos de recurso que pueden recibir notas.
const (
	NoteResourceDevice  = "fiscal_device"
	NoteResourceInvoice = "invoice"
)

// Niveles de nota.
const (
	NoteLevelInfo  = "info"
	NoteLevelError = "error"
)

// Note narrativa legible adjunta a un dispositivo o factura (fallos de fiscalización, tareas automáticas).
type Note struct {
	ID           string
	CompanyID    string
	ResourceType string
	ResourceID   string
	Subject      string
	Body         string
	Level        string
	CreatedAt    time.Time
}
