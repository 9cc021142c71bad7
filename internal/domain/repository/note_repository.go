package repository

import (
	"context"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// NoteRepository sumidero de notas sobre dispositivos y facturas.
type NoteRepository interface {
	Create(ctx context.Context, note *entity.Note) error
	ListByResource(ctx context.Context, companyID, resourceType, resourceID string, limit int) ([]*entity.Note, error)
}
