package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/zimra-fiscal/internal/application/dto"
	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	"github.com/jhoicas/zimra-fiscal/internal/domain/repository"
)

const defaultNotesLimit = 50

// DeviceRegistrar alta atómica de un dispositivo junto con su nota (implementado por postgres.TxRunner).
type DeviceRegistrar interface {
	CreateDeviceWithNote(ctx context.Context, d *entity.FiscalDevice, n *entity.Note) error
}

// DeviceUseCase administración de dispositivos fiscales y consulta de notas.
type DeviceUseCase struct {
	devices        repository.FiscalDeviceRepository
	notes          repository.NoteRepository
	registrar      DeviceRegistrar
	defaultBaseURL string
}

// NewDeviceUseCase construye el caso de uso. defaultBaseURL se aplica cuando la petición no trae base_url.
// Con registrar nil el alta usa los repositorios por separado.
func NewDeviceUseCase(devices repository.FiscalDeviceRepository, notes repository.NoteRepository, registrar DeviceRegistrar, defaultBaseURL string) *DeviceUseCase {
	if defaultBaseURL == "" {
		defaultBaseURL = entity.DefaultBaseURL
	}
	if registrar == nil {
		registrar = sequentialRegistrar{devices: devices, notes: notes}
	}
	return &DeviceUseCase{devices: devices, notes: notes, registrar: registrar, defaultBaseURL: defaultBaseURL}
}

type sequentialRegistrar struct {
	devices repository.FiscalDeviceRepository
	notes   repository.NoteRepository
}

func (r sequentialRegistrar) CreateDeviceWithNote(ctx context.Context, d *entity.FiscalDevice, n *entity.Note) error {
	if err := r.devices.Create(ctx, d); err != nil {
		return err
	}
	return r.notes.Create(ctx, n)
}

// CreateDevice registra un dispositivo. Devuelve ErrDuplicate si el device_id ya existe en la empresa.
func (uc *DeviceUseCase) CreateDevice(ctx context.Context, companyID string, in dto.CreateFiscalDeviceRequest) (*entity.FiscalDevice, error) {
	if err := validateDevice(companyID, in); err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(strings.TrimSpace(in.BaseURL), "/")
	if baseURL == "" {
		baseURL = uc.defaultBaseURL
	}
	now := time.Now()
	d := &entity.FiscalDevice{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		Name:          strings.TrimSpace(in.Name),
		DeviceID:      in.DeviceID,
		DeviceSerial:  strings.TrimSpace(in.DeviceSerial),
		ActivationKey: in.ActivationKey,
		BaseURL:       baseURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	note := &entity.Note{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		ResourceType: entity.NoteResourceDevice,
		ResourceID:   d.ID,
		Subject:      "Fiscal Device Registered",
		Body:         fmt.Sprintf("Device %d (%s) registered against %s", d.DeviceID, d.DeviceSerial, d.BaseURL),
		Level:        entity.NoteLevelInfo,
		CreatedAt:    now,
	}
	if err := uc.registrar.CreateDeviceWithNote(ctx, d, note); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDevice dispositivo de la empresa; ErrNotFound si no existe o es de otro tenant.
func (uc *DeviceUseCase) GetDevice(ctx context.Context, companyID, id string) (*entity.FiscalDevice, error) {
	d, err := uc.devices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cargar dispositivo: %w", err)
	}
	if d == nil || d.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (uc *DeviceUseCase) ListDevices(ctx context.Context, companyID string) ([]*entity.FiscalDevice, error) {
	return uc.devices.ListByCompany(ctx, companyID)
}

// ListNotes notas más recientes de un recurso de la empresa.
func (uc *DeviceUseCase) ListNotes(ctx context.Context, companyID, resourceType, resourceID string, limit int) ([]*entity.Note, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotesLimit
	}
	return uc.notes.ListByResource(ctx, companyID, resourceType, resourceID, limit)
}

func validateDevice(companyID string, in dto.CreateFiscalDeviceRequest) error {
	var missing []string
	if companyID == "" {
		missing = append(missing, "company_id")
	}
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.DeviceID <= 0 {
		missing = append(missing, "device_id")
	}
	if strings.TrimSpace(in.DeviceSerial) == "" {
		missing = append(missing, "device_serial")
	}
	if in.ActivationKey == "" {
		missing = append(missing, "activation_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: campos obligatorios: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}
