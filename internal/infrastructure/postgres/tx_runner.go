package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
	"github.com/jhoicas/zimra-fiscal/pkg/secret"
)

var _ fiscal.DeviceRegistrar = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
	box  *secret.Box
}

// NewTxRunner construye el runner con el pool y la caja de secretos de los dispositivos.
func NewTxRunner(pool *pgxpool.Pool, box *secret.Box) *TxRunner {
	return &TxRunner{pool: pool, box: box}
}

// RunDevice inicia una transacción, ejecuta fn con repos de dispositivo y notas atados a la tx
// y hace Commit o Rollback.
func (r *TxRunner) RunDevice(ctx context.Context, fn func(
	devices repository.FiscalDeviceRepository,
	notes repository.NoteRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewFiscalDeviceRepository(tx, r.box), NewNoteRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateDeviceWithNote registra el dispositivo y su nota de alta de forma atómica.
func (r *TxRunner) CreateDeviceWithNote(ctx context.Context, d *entity.FiscalDevice, n *entity.Note) error {
	return r.RunDevice(ctx, func(devices repository.FiscalDeviceRepository, notes repository.NoteRepository) error {
		if err := devices.Create(ctx, d); err != nil {
			return err
		}
		return notes.Create(ctx, n)
	})
}
