// Package fdms cliente HTTP del servicio fiscal ZIMRA (FDMS): sesión por dispositivo,
// llamadas de día fiscal y envío de recibos, con clasificación única de errores.
package fdms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
	domainfdms "github.com/jhoicas/zimra-fiscal/internal/domain/fdms"
)

// DefaultTimeout presupuesto de cada llamada a FDMS.
const DefaultTimeout = 15 * time.Second

const (
	resultOK         = "OK"
	resultStoreError = "STORE_ERROR"
	maxResponseBytes = 1 << 20
)

// DeviceStore persistencia de los efectos laterales del cliente sobre el dispositivo.
type DeviceStore interface {
	SaveTokens(ctx context.Context, deviceID string, tokens entity.DeviceTokens) error
	RecordError(ctx context.Context, deviceID string, diag entity.DeviceDiagnostic) error
}

// Observer recibe una observación por llamada (endpoint, código de resultado, duración).
type Observer interface {
	ObserveRequest(endpoint, code string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}

// Options dependencias opcionales del cliente.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Observer   Observer
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Client cliente FDMS. Seguro para uso concurrente.
type Client struct {
	t      *transport
	tokens *TokenManager
}

// NewClient construye el cliente. El timeout por defecto es de 15 s.
func NewClient(store DeviceStore, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	t := &transport{
		http:     opts.HTTPClient,
		store:    store,
		observer: opts.Observer,
		log:      opts.Logger,
		now:      opts.Now,
		timeout:  opts.Timeout,
	}
	return &Client{t: t, tokens: newTokenManager(t)}
}

// Tokens expone el gestor de sesión (renovación manual y tareas programadas).
func (c *Client) Tokens() *TokenManager { return c.tokens }

// EnsureValidToken atajo sobre el gestor de sesión.
func (c *Client) EnsureValidToken(ctx context.Context, d *entity.FiscalDevice) error {
	return c.tokens.EnsureValidToken(ctx, d)
}

// AcquireToken fuerza la obtención de un token nuevo.
func (c *Client) AcquireToken(ctx context.Context, d *entity.FiscalDevice) error {
	return c.tokens.AcquireToken(ctx, d)
}

// Request llamada autenticada genérica: asegura el token, envía payload como JSON y
// decodifica la respuesta 2xx en out, validando sus campos obligatorios. Sin reintentos.
// Los fallos de FDMS se devuelven como *Error y quedan en el diagnóstico del dispositivo;
// un fallo al guardar la sesión se devuelve envuelto con %w.
func (c *Client) Request(ctx context.Context, d *entity.FiscalDevice, endpoint, method string, payload any, out Validator) error {
	if err := c.tokens.EnsureValidToken(ctx, d); err != nil {
		return err
	}

	start := c.t.now()
	if err := c.t.call(ctx, method, d.BaseURL+endpoint, d.AccessToken, payload, out); err != nil {
		fe := c.t.fail(ctx, d, endpoint, err)
		c.t.observe(endpoint, fe.Code, start)
		return fe
	}
	c.t.observe(endpoint, resultOK, start)
	return nil
}

func (c *Client) OpenDay(ctx context.Context, d *entity.FiscalDevice) (*OpenDayResponse, error) {
	var resp OpenDayResponse
	if err := c.Request(ctx, d, EndpointDayOpen, http.MethodPost, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CloseDay(ctx context.Context, d *entity.FiscalDevice) (*CloseDayResponse, error) {
	var resp CloseDayResponse
	if err := c.Request(ctx, d, EndpointDayClose, http.MethodPost, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatus usa POST, como exige FDMS.
func (c *Client) GetStatus(ctx context.Context, d *entity.FiscalDevice) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.Request(ctx, d, EndpointStatus, http.MethodPost, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SubmitReceipt(ctx context.Context, d *entity.FiscalDevice, receipt *domainfdms.ReceiptRequest) (*ReceiptResponse, error) {
	var resp ReceiptResponse
	if err := c.Request(ctx, d, EndpointReceipts, http.MethodPost, receipt, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ── transporte ───────────────────────────────────────────────────────────────

type transport struct {
	http     *http.Client
	store    DeviceStore
	observer Observer
	log      zerolog.Logger
	now      func() time.Time
	timeout  time.Duration
}

// call ejecuta la petición y decodifica la respuesta. Los errores devueltos son crudos;
// la clasificación ocurre en fail.
func (t *transport) call(ctx context.Context, method, url, bearer string, payload any, out Validator) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("fdms: serializar payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("fdms: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	t.log.Debug().Str("method", method).Str("url", url).Msg("FDMS request")
	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("fdms: leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{StatusCode: resp.StatusCode, Body: raw}
	}
	return decode(raw, out)
}

func decode(raw []byte, out Validator) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) || len(bytes.TrimSpace(raw)) == 0 {
			return &nonJSONError{err: err}
		}
		return err
	}
	return out.Validate()
}

// fail clasifica el error, lo registra como diagnóstico del dispositivo y lo devuelve.
// Un fallo al guardar el diagnóstico se registra en log y no oculta el error original.
// La cancelación del llamador no se guarda como diagnóstico.
func (t *transport) fail(ctx context.Context, d *entity.FiscalDevice, endpoint string, err error) *Error {
	fe := Classify(err, d.BaseURL, t.timeout)
	if fe.Code == CodeCanceled {
		t.log.Debug().Str("device", d.Name).Str("endpoint", endpoint).Msg("solicitud FDMS cancelada")
		return fe
	}
	diag := entity.DeviceDiagnostic{
		Code:      fe.Code,
		Message:   fe.Message,
		Status:    fe.Status,
		CheckedAt: t.now(),
	}
	d.LastErrorCode = diag.Code
	d.LastErrorMessage = diag.Message
	d.LastErrorStatus = diag.Status
	checked := diag.CheckedAt
	d.LastStatusCheck = &checked

	if werr := t.store.RecordError(context.WithoutCancel(ctx), d.ID, diag); werr != nil {
		t.log.Error().Err(werr).Str("device", d.Name).Msg("no se pudo guardar el diagnóstico FDMS")
	}
	t.log.Warn().
		Str("device", d.Name).
		Str("endpoint", endpoint).
		Str("code", fe.Code).
		Int("status", fe.Status).
		Str("operation_id", fe.OperationID).
		Msg(fe.Message)
	return fe
}

func (t *transport) observe(endpoint, code string, start time.Time) {
	t.observer.ObserveRequest(endpoint, code, t.now().Sub(start))
}
