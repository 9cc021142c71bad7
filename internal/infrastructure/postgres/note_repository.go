package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
)

var _ repository.NoteRepository = (*NoteRepo)(nil)

// NoteRepo notas sobre dispositivos y facturas.
type NoteRepo struct {
	q Querier
}

func NewNoteRepository(q Querier) *NoteRepo {
	return &NoteRepo{q: q}
}

// Create persiste una nota.
func (r *NoteRepo) Create(ctx context.Context, n *entity.Note) error {
	query := `
		INSERT INTO notes (id, company_id, resource_type, resource_id, subject, body, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		n.ID, n.CompanyID, n.ResourceType, n.ResourceID, n.Subject, n.Body, n.Level, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// ListByResource notas más recientes primero.
func (r *NoteRepo) ListByResource(ctx context.Context, companyID, resourceType, resourceID string, limit int) ([]*entity.Note, error) {
	query := `
		SELECT id, company_id, resource_type, resource_id, subject, body, level, created_at
		FROM notes
		WHERE company_id = $1 AND resource_type = $2 AND resource_id = $3
		ORDER BY created_at DESC
		LIMIT $4`
	rows, err := r.q.Query(ctx, query, companyID, resourceType, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	var list []*entity.Note
	for rows.Next() {
		var n entity.Note
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.ResourceType, &n.ResourceID, &n.Subject, &n.Body, &n.Level, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}
