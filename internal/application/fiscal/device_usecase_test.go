package fiscal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zimra-fiscal/internal/application/dto"
	"github.com/jhoicas/zimra-fiscal/internal/application/fiscal"
	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

func validDeviceRequest() dto.CreateFiscalDeviceRequest {
	return dto.CreateFiscalDeviceRequest{
		Name:          "Caja principal",
		DeviceID:      321,
		DeviceSerial:  "SN-321",
		ActivationKey: "00012345",
	}
}

func TestCreateDevice_AplicaURLPorDefecto(t *testing.T) {
	devs := newMemDevices()
	notes := &memNotes{}
	uc := fiscal.NewDeviceUseCase(devs, notes, nil, "")

	d, err := uc.CreateDevice(context.Background(), "co-1", validDeviceRequest())
	require.NoError(t, err)
	require.Len(t, notes.forResource(d.ID), 1)
	assert.Equal(t, "Fiscal Device Registered", notes.forResource(d.ID)[0].Subject)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, entity.DefaultBaseURL, d.BaseURL)
	assert.Equal(t, "co-1", d.CompanyID)
	assert.False(t, d.IsDayOpen())

	in := validDeviceRequest()
	in.DeviceID = 322
	in.BaseURL = " https://fiscal.telco.co.zw/ "
	d2, err := uc.CreateDevice(context.Background(), "co-1", in)
	require.NoError(t, err)
	assert.Equal(t, entity.ProductionBaseURL, d2.BaseURL)
	assert.Equal(t, "https://fdms.zimra.co.zw", d2.VerificationURL())
}

func TestCreateDevice_CamposObligatorios(t *testing.T) {
	uc := fiscal.NewDeviceUseCase(newMemDevices(), &memNotes{}, nil, "")

	_, err := uc.CreateDevice(context.Background(), "co-1", dto.CreateFiscalDeviceRequest{Name: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "device_id")
	assert.Contains(t, err.Error(), "activation_key")
	assert.NotContains(t, err.Error(), "name")
}

func TestCreateDevice_DuplicadoEnLaEmpresa(t *testing.T) {
	uc := fiscal.NewDeviceUseCase(newMemDevices(), &memNotes{}, nil, "")
	_, err := uc.CreateDevice(context.Background(), "co-1", validDeviceRequest())
	require.NoError(t, err)

	_, err = uc.CreateDevice(context.Background(), "co-1", validDeviceRequest())
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.CreateDevice(context.Background(), "co-2", validDeviceRequest())
	assert.NoError(t, err, "el mismo device_id puede existir en otra empresa")
}

func TestGetDevice_AcotadoAlTenant(t *testing.T) {
	uc := fiscal.NewDeviceUseCase(newMemDevices(newDevice("d1", "")), &memNotes{}, nil, "")

	d, err := uc.GetDevice(context.Background(), "co-1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)

	_, err = uc.GetDevice(context.Background(), "co-2", "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListNotes_LimitePorDefectoYOrden(t *testing.T) {
	notes := &memNotes{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		require.NoError(t, notes.Create(context.Background(), &entity.Note{
			CompanyID:    "co-1",
			ResourceType: entity.NoteResourceDevice,
			ResourceID:   "d1",
			Subject:      "s",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	uc := fiscal.NewDeviceUseCase(newMemDevices(), notes, nil, "")

	out, err := uc.ListNotes(context.Background(), "co-1", entity.NoteResourceDevice, "d1", 0)
	require.NoError(t, err)
	assert.Len(t, out, 50)
	assert.True(t, out[0].CreatedAt.After(out[1].CreatedAt))

	out, err = uc.ListNotes(context.Background(), "co-1", entity.NoteResourceDevice, "d1", 5)
	require.NoError(t, err)
	assert.Len(t, out, 5)

	out, err = uc.ListNotes(context.Background(), "co-2", entity.NoteResourceDevice, "d1", 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}
