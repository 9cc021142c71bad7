package dto

import "time"

// CreateCompanyRequest entrada para registrar un contribuyente.
type CreateCompanyRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	TIN       string `json:"tin" validate:"required,max=20"`
	VATNumber string `json:"vat_number" validate:"omitempty,max=20"`
	Address   string `json:"address"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TIN       string    `json:"tin"`
	VATNumber string    `json:"vat_number,omitempty"`
	Address   string    `json:"address,omitempty"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
