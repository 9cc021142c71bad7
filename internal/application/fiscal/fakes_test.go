package fiscal_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jhoicas/zimra-fiscal/internal/domain"
	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	domainfdms "github.com/jhoicas/zimra-fiscal/internal/domain/fdms"
	infrafdms "github.com/jhoicas/zimra-fiscal/internal/infrastructure/fdms"
)

// ── repositorios en memoria ───────────────────────────────────────────────────

type memDevices struct {
	mu      sync.Mutex
	byID    map[string]*entity.FiscalDevice
	order   []string
	updates map[string]int
	listErr error
}

func newMemDevices(devs ...*entity.FiscalDevice) *memDevices {
	m := &memDevices{byID: map[string]*entity.FiscalDevice{}, updates: map[string]int{}}
	for _, d := range devs {
		m.byID[d.ID] = d
		m.order = append(m.order, d.ID)
	}
	return m
}

// copia para que los casos de uso trabajen sobre una instancia distinta a la almacenada
func clone(d *entity.FiscalDevice) *entity.FiscalDevice {
	c := *d
	return &c
}

func (m *memDevices) Create(_ context.Context, d *entity.FiscalDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.CompanyID == d.CompanyID && existing.DeviceID == d.DeviceID {
			return domain.ErrDuplicate
		}
	}
	m.byID[d.ID] = clone(d)
	m.order = append(m.order, d.ID)
	return nil
}

func (m *memDevices) GetByID(_ context.Context, id string) (*entity.FiscalDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		return clone(d), nil
	}
	return nil, nil
}

func (m *memDevices) GetByCompany(_ context.Context, companyID string) (*entity.FiscalDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if d := m.byID[id]; d.CompanyID == companyID {
			return clone(d), nil
		}
	}
	return nil, nil
}

func (m *memDevices) ListByCompany(ctx context.Context, companyID string) ([]*entity.FiscalDevice, error) {
	return m.filter(func(d *entity.FiscalDevice) bool { return d.CompanyID == companyID })
}

func (m *memDevices) ListAll(context.Context) ([]*entity.FiscalDevice, error) {
	return m.filter(func(*entity.FiscalDevice) bool { return true })
}

func (m *memDevices) ListByDayStatus(_ context.Context, status string) ([]*entity.FiscalDevice, error) {
	return m.filter(func(d *entity.FiscalDevice) bool { return d.FiscalDayStatus == status })
}

func (m *memDevices) filter(keep func(*entity.FiscalDevice) bool) ([]*entity.FiscalDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.FiscalDevice
	for _, id := range m.order {
		if d := m.byID[id]; keep(d) {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

func (m *memDevices) SaveTokens(_ context.Context, id string, t entity.DeviceTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.byID[id]
	exp := t.Expiry
	d.AccessToken, d.RefreshToken, d.TokenExpiry = t.AccessToken, t.RefreshToken, &exp
	return nil
}

func (m *memDevices) RecordError(_ context.Context, id string, diag entity.DeviceDiagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.byID[id]
	d.LastErrorCode, d.LastErrorMessage, d.LastErrorStatus = diag.Code, diag.Message, diag.Status
	return nil
}

func (m *memDevices) UpdateDayState(_ context.Context, id string, upd entity.DayStateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	upd.Apply(d)
	m.updates[id]++
	return nil
}

func (m *memDevices) stored(id string) *entity.FiscalDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.byID[id])
}

type memInvoices struct {
	mu       sync.Mutex
	byID     map[string]*entity.Invoice
	markCall int
	markErr  error
}

func newMemInvoices(invs ...*entity.Invoice) *memInvoices {
	m := &memInvoices{byID: map[string]*entity.Invoice{}}
	for _, inv := range invs {
		m.byID[inv.ID] = inv
	}
	return m
}

func (m *memInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	c := *inv
	return &c, nil
}

func (m *memInvoices) MarkFiscalised(_ context.Context, id string, rec entity.FiscalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCall++
	if m.markErr != nil {
		return m.markErr
	}
	inv := m.byID[id]
	if inv.Fiscal.Fiscalised {
		return domain.ErrAlreadyFiscalised
	}
	inv.Fiscal = rec
	return nil
}

type memNotes struct {
	mu    sync.Mutex
	notes []*entity.Note
}

func (m *memNotes) Create(_ context.Context, n *entity.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, n)
	return nil
}

func (m *memNotes) ListByResource(_ context.Context, companyID, resourceType, resourceID string, limit int) ([]*entity.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Note
	for _, n := range m.notes {
		if n.CompanyID == companyID && n.ResourceType == resourceType && n.ResourceID == resourceID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotes) forResource(id string) []*entity.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Note
	for _, n := range m.notes {
		if n.ResourceID == id {
			out = append(out, n)
		}
	}
	return out
}

// ── cliente FDMS falso ────────────────────────────────────────────────────────

type fakeClient struct {
	mu sync.Mutex

	openResp   *infrafdms.OpenDayResponse
	closeResp  *infrafdms.CloseDayResponse
	statusResp map[string]*infrafdms.StatusResponse
	receipt    *infrafdms.ReceiptResponse

	failFor map[string]error // por ID de dispositivo
	panicOn string
	err     error

	calls     map[string]int
	lastBuilt *domainfdms.ReceiptRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: map[string]int{}, failFor: map[string]error{}, statusResp: map[string]*infrafdms.StatusResponse{}}
}

func (f *fakeClient) hit(op string, d *entity.FiscalDevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.panicOn == d.ID {
		panic("fallo inesperado")
	}
	if err, ok := f.failFor[d.ID]; ok {
		return err
	}
	return f.err
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient) EnsureValidToken(_ context.Context, d *entity.FiscalDevice) error {
	return f.hit("ensure", d)
}

func (f *fakeClient) AcquireToken(_ context.Context, d *entity.FiscalDevice) error {
	return f.hit("token", d)
}

func (f *fakeClient) OpenDay(_ context.Context, d *entity.FiscalDevice) (*infrafdms.OpenDayResponse, error) {
	if err := f.hit("open", d); err != nil {
		return nil, err
	}
	return f.openResp, nil
}

func (f *fakeClient) CloseDay(_ context.Context, d *entity.FiscalDevice) (*infrafdms.CloseDayResponse, error) {
	if err := f.hit("close", d); err != nil {
		return nil, err
	}
	return f.closeResp, nil
}

func (f *fakeClient) GetStatus(_ context.Context, d *entity.FiscalDevice) (*infrafdms.StatusResponse, error) {
	if err := f.hit("status", d); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.statusResp[d.ID]; ok {
		return r, nil
	}
	return nil, errors.New("sin respuesta configurada")
}

func (f *fakeClient) SubmitReceipt(_ context.Context, d *entity.FiscalDevice, r *domainfdms.ReceiptRequest) (*infrafdms.ReceiptResponse, error) {
	f.mu.Lock()
	f.lastBuilt = r
	f.mu.Unlock()
	if err := f.hit("submit", d); err != nil {
		return nil, err
	}
	return f.receipt, nil
}

// ── publicador y métricas ─────────────────────────────────────────────────────

type recPublisher struct {
	mu     sync.Mutex
	events []entity.FiscalEvent
	err    error
}

func (p *recPublisher) Publish(_ context.Context, ev entity.FiscalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recMetrics struct {
	mu     sync.Mutex
	batch  map[string]int
	fiscal map[string]int
}

func newRecMetrics() *recMetrics {
	return &recMetrics{batch: map[string]int{}, fiscal: map[string]int{}}
}

func (m *recMetrics) RecordBatch(job, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch[job+"/"+result]++
}

func (m *recMetrics) RecordFiscalisation(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fiscal[result]++
}

func flex(s string) *infrafdms.FlexString {
	v := infrafdms.FlexString(s)
	return &v
}

func i64(n int64) *int64 { return &n }
