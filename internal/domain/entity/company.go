package entity

import "time"

// Company representa una organización/tenant del sistema. Cada empresa opera un único dispositivo fiscal.
type Company struct {
	ID        string
	Name      string
	TIN       string // Taxpayer Identification Number (ZIMRA)
	VATNumber string
	Address   string
	Email     string
	Status    string // active, suspended, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}
