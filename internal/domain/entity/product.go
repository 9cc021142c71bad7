package entity

// Product referencia de producto en una línea de factura. HSCode es obligatorio para FDMS.
type Product struct {
	ID     string
	Name   string
	HSCode string // Harmonized System code
}
