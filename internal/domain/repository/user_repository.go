package repository

import "github.com/jhoicas/zimra-fiscal/internal/domain/entity"

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByEmailAndCompany(email, companyID string) (*entity.User, error)
	// FindByEmail busca en cualquier empresa; usado por el login.
	FindByEmail(email string) (*entity.User, error)
}
