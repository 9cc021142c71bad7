package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
	"github.com/jhoicas/zimra-fiscal/pkg/secret"
)

var (
	_ repository.FiscalDeviceRepository = (*FiscalDeviceRepo)(nil)
	_ infrafdms.DeviceStore             = (*FiscalDeviceRepo)(nil)
)

// FiscalDeviceRepo persistencia de dispositivos fiscales. activation_key, access_token y
// refresh_token se sellan con box antes de escribirse (box nil = texto plano).
type FiscalDeviceRepo struct {
	q   Querier
	box *secret.Box
}

// NewFiscalDeviceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalDeviceRepository(q Querier, box *secret.Box) *FiscalDeviceRepo {
	return &FiscalDeviceRepo{q: q, box: box}
}

const deviceColumns = `
	id, company_id, name, device_id, device_serial, activation_key, base_url,
	COALESCE(access_token, ''), COALESCE(refresh_token, ''), token_expiry,
	fiscal_day_status, fiscal_day_no, last_receipt_global_no, last_receipt_no,
	fiscal_day_counters, last_operation, last_status_check,
	COALESCE(last_error_code, ''), COALESCE(last_error_message, ''), last_error_status,
	created_at, updated_at`

// Create inserta el dispositivo. ErrDuplicate si (company_id, device_id) ya existe.
func (r *FiscalDeviceRepo) Create(ctx context.Context, d *entity.FiscalDevice) error {
	activation, err := r.box.Seal(d.ActivationKey)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO fiscal_devices (id, company_id, name, device_id, device_serial, activation_key, base_url,
			fiscal_day_status, fiscal_day_no, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.q.Exec(ctx, query,
		d.ID, d.CompanyID, d.Name, d.DeviceID, d.DeviceSerial, activation, d.BaseURL,
		d.FiscalDayStatus, d.FiscalDayNo, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert fiscal device: %w", err)
	}
	return nil
}

func (r *FiscalDeviceRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDevice, error) {
	return r.getOne(ctx, `SELECT `+deviceColumns+` FROM fiscal_devices WHERE id = $1`, id)
}

// GetByCompany dispositivo configurado para la empresa; el más antiguo si hubiera varios.
func (r *FiscalDeviceRepo) GetByCompany(ctx context.Context, companyID string) (*entity.FiscalDevice, error) {
	return r.getOne(ctx, `SELECT `+deviceColumns+` FROM fiscal_devices WHERE company_id = $1 ORDER BY created_at, id LIMIT 1`, companyID)
}

func (r *FiscalDeviceRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.FiscalDevice, error) {
	return r.list(ctx, `SELECT `+deviceColumns+` FROM fiscal_devices WHERE company_id = $1 ORDER BY created_at, id`, companyID)
}

// ListAll todos los dispositivos, en orden estable para las tareas por lote.
func (r *FiscalDeviceRepo) ListAll(ctx context.Context) ([]*entity.FiscalDevice, error) {
	return r.list(ctx, `SELECT `+deviceColumns+` FROM fiscal_devices ORDER BY created_at, id`)
}

func (r *FiscalDeviceRepo) ListByDayStatus(ctx context.Context, status string) ([]*entity.FiscalDevice, error) {
	return r.list(ctx, `SELECT `+deviceColumns+` FROM fiscal_devices WHERE fiscal_day_status = $1 ORDER BY created_at, id`, status)
}

// SaveTokens escribe access token, refresh token y expiración en una sola sentencia.
func (r *FiscalDeviceRepo) SaveTokens(ctx context.Context, id string, t entity.DeviceTokens) error {
	access, err := r.box.Seal(t.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := r.box.Seal(t.RefreshToken)
	if err != nil {
		return err
	}
	query := `
		UPDATE fiscal_devices
		SET access_token = $2, refresh_token = $3, token_expiry = $4, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, "save tokens", query, id, access, refresh, t.Expiry)
}

// RecordError guarda la instantánea del último fallo contra FDMS.
func (r *FiscalDeviceRepo) RecordError(ctx context.Context, id string, diag entity.DeviceDiagnostic) error {
	query := `
		UPDATE fiscal_devices
		SET last_error_code = $2, last_error_message = $3, last_error_status = $4,
		    last_status_check = $5, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, "record error", query, id, diag.Code, diag.Message, diag.Status, diag.CheckedAt)
}

// UpdateDayState escribe solo los campos presentes en upd (COALESCE con el valor actual).
func (r *FiscalDeviceRepo) UpdateDayState(ctx context.Context, id string, upd entity.DayStateUpdate) error {
	var counters []byte
	if upd.FiscalDayCounters != nil {
		counters = upd.FiscalDayCounters
	}
	query := `
		UPDATE fiscal_devices
		SET fiscal_day_status      = COALESCE($2, fiscal_day_status),
		    fiscal_day_no          = COALESCE($3, fiscal_day_no),
		    last_receipt_global_no = COALESCE($4, last_receipt_global_no),
		    last_receipt_no        = COALESCE($5, last_receipt_no),
		    fiscal_day_counters    = COALESCE($6::jsonb, fiscal_day_counters),
		    last_operation         = COALESCE($7, last_operation),
		    last_status_check      = COALESCE($8, last_status_check),
		    updated_at             = now()
		WHERE id = $1`
	return r.exec(ctx, "update day state", query, id,
		upd.FiscalDayStatus, upd.FiscalDayNo, upd.LastReceiptGlobalNo, upd.LastReceiptNo,
		counters, upd.LastOperation, upd.LastStatusCheck,
	)
}

func (r *FiscalDeviceRepo) exec(ctx context.Context, op, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FiscalDeviceRepo) getOne(ctx context.Context, query string, args ...any) (*entity.FiscalDevice, error) {
	d, err := r.scan(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal device: %w", err)
	}
	return d, nil
}

func (r *FiscalDeviceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.FiscalDevice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fiscal devices: %w", err)
	}
	defer rows.Close()
	var out []*entity.FiscalDevice
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *FiscalDeviceRepo) scan(row pgx.Row) (*entity.FiscalDevice, error) {
	var (
		d        entity.FiscalDevice
		expiry   *time.Time
		counters []byte
	)
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.Name, &d.DeviceID, &d.DeviceSerial, &d.ActivationKey, &d.BaseURL,
		&d.AccessToken, &d.RefreshToken, &expiry,
		&d.FiscalDayStatus, &d.FiscalDayNo, &d.LastReceiptGlobalNo, &d.LastReceiptNo,
		&counters, &d.LastOperation, &d.LastStatusCheck,
		&d.LastErrorCode, &d.LastErrorMessage, &d.LastErrorStatus,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.TokenExpiry = expiry
	if len(counters) > 0 {
		d.FiscalDayCounters = json.RawMessage(counters)
	}
	if d.ActivationKey, err = r.box.Open(d.ActivationKey); err != nil {
		return nil, err
	}
	if d.AccessToken, err = r.box.Open(d.AccessToken); err != nil {
		return nil, err
	}
	if d.RefreshToken, err = r.box.Open(d.RefreshToken); err != nil {
		return nil, err
	}
	return &d, nil
}
