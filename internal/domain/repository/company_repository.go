package repository

import "github.com/jhoicas/zimra-fiscal/internal/domain/entity"

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	Create(company *entity.Company) error
	GetByID(id string) (*entity.Company, error)
	GetByTIN(tin string) (*entity.Company, error)
}
