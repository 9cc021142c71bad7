package http_test

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

type memDevices struct {
	mu   sync.Mutex
	byID map[string]*entity.FiscalDevice
}

func newMemDevices(list ...*entity.FiscalDevice) *memDevices {
	m := &memDevices{byID: map[string]*entity.FiscalDevice{}}
	for _, d := range list {
		m.byID[d.ID] = d
	}
	return m
}

func (m *memDevices) Create(_ context.Context, d *entity.FiscalDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.CompanyID == d.CompanyID && x.DeviceID == d.DeviceID {
			return domain.ErrDuplicate
		}
	}
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDevices) GetByID(_ context.Context, id string) (*entity.FiscalDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memDevices) GetByCompany(ctx context.Context, companyID string) (*entity.FiscalDevice, error) {
	list, _ := m.ListByCompany(ctx, companyID)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (m *memDevices) ListByCompany(_ context.Context, companyID string) ([]*entity.FiscalDevice, error) {
	return m.filter(func(d *entity.FiscalDevice) bool { return d.CompanyID == companyID }), nil
}

func (m *memDevices) ListAll(context.Context) ([]*entity.FiscalDevice, error) {
	return m.filter(func(*entity.FiscalDevice) bool { return true }), nil
}

func (m *memDevices) ListByDayStatus(_ context.Context, status string) ([]*entity.FiscalDevice, error) {
	return m.filter(func(d *entity.FiscalDevice) bool { return d.FiscalDayStatus == status }), nil
}

func (m *memDevices) filter(keep func(*entity.FiscalDevice) bool) []*entity.FiscalDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FiscalDevice
	for _, d := range m.byID {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memDevices) update(id string, fn func(d *entity.FiscalDevice)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(d)
	return nil
}

func (m *memDevices) SaveTokens(_ context.Context, id string, t entity.DeviceTokens) error {
	return m.update(id, func(d *entity.FiscalDevice) {
		d.AccessToken, d.RefreshToken, d.TokenExpiry = t.AccessToken, t.RefreshToken, &t.Expiry
	})
}

func (m *memDevices) RecordError(_ context.Context, id string, diag entity.DeviceDiagnostic) error {
	return m.update(id, func(d *entity.FiscalDevice) {
		d.LastErrorCode, d.LastErrorMessage, d.LastErrorStatus = diag.Code, diag.Message, diag.Status
	})
}

func (m *memDevices) UpdateDayState(_ context.Context, id string, upd entity.DayStateUpdate) error {
	return m.update(id, func(d *entity.FiscalDevice) { upd.Apply(d) })
}

type memNotes struct {
	mu   sync.Mutex
	list []*entity.Note
}

func (m *memNotes) Create(_ context.Context, n *entity.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, n)
	return nil
}

func (m *memNotes) ListByResource(_ context.Context, companyID, resourceType, resourceID string, limit int) ([]*entity.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Note
	for i := len(m.list) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.list[i]
		if n.CompanyID == companyID && n.ResourceType == resourceType && n.ResourceID == resourceID {
			out = append(out, n)
		}
	}
	return out, nil
}

type memInvoices struct {
	mu   sync.Mutex
	byID map[string]*entity.Invoice
}

func (m *memInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.byID[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (m *memInvoices) MarkFiscalised(_ context.Context, id string, rec entity.FiscalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if inv.Fiscal.Fiscalised {
		return domain.ErrAlreadyFiscalised
	}
	inv.Fiscal = rec
	return nil
}
