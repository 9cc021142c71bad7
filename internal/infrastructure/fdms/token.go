package fdms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// TokenManager mantiene vigente la sesión (access/refresh token) de cada dispositivo.
type TokenManager struct {
	t     *transport
	group singleflight.Group
}

func newTokenManager(t *transport) *TokenManager {
	return &TokenManager{t: t}
}

// EnsureValidToken obtiene un token nuevo solo si no hay expiración o ya venció.
func (m *TokenManager) EnsureValidToken(ctx context.Context, d *entity.FiscalDevice) error {
	if d.TokenValid(m.t.now()) {
		return nil
	}
	return m.AcquireToken(ctx, d)
}

// AcquireToken pide un token nuevo a FDMS y persiste los tres campos de sesión en una sola escritura.
// Solicitudes concurrentes para el mismo dispositivo comparten una única llamada de red, que no
// depende de la cancelación de ninguno de ellos; cada llamador deja de esperar con su propio ctx.
// No hay reintento ni vuelta al token anterior.
func (m *TokenManager) AcquireToken(ctx context.Context, d *entity.FiscalDevice) error {
	shared := *d
	ch := m.group.DoChan(d.ID, func() (any, error) {
		return m.acquire(context.WithoutCancel(ctx), &shared)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Classify(ctx.Err(), d.BaseURL, m.t.timeout)
	case res = <-ch:
	}
	if res.Err != nil {
		var fe *Error
		if errors.As(res.Err, &fe) {
			d.LastErrorCode = fe.Code
			d.LastErrorMessage = fe.Message
			d.LastErrorStatus = fe.Status
			checked := m.t.now()
			d.LastStatusCheck = &checked
		}
		return res.Err
	}
	applyTokens(d, res.Val.(entity.DeviceTokens))
	if res.Shared {
		m.t.log.Debug().Str("device", d.Name).Msg("token compartido entre solicitudes concurrentes")
	}
	return nil
}

func (m *TokenManager) acquire(ctx context.Context, d *entity.FiscalDevice) (entity.DeviceTokens, error) {
	start := m.t.now()
	body := TokenRequest{DeviceSerial: d.DeviceSerial, ActivationKey: d.ActivationKey}

	var resp TokenResponse
	if err := m.t.call(ctx, http.MethodPost, d.BaseURL+EndpointToken, "", body, &resp); err != nil {
		fe := m.t.fail(ctx, d, EndpointToken, err)
		m.t.observe(EndpointToken, fe.Code, start)
		return entity.DeviceTokens{}, fe
	}

	tokens := entity.DeviceTokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       m.t.now().Add(time.Duration(*resp.ExpiresIn) * time.Second),
	}
	if err := m.t.store.SaveTokens(ctx, d.ID, tokens); err != nil {
		m.t.observe(EndpointToken, resultStoreError, start)
		return entity.DeviceTokens{}, fmt.Errorf("fdms: guardar tokens: %w", err)
	}
	m.t.observe(EndpointToken, resultOK, start)
	m.t.log.Info().Str("device", d.Name).Time("expiry", tokens.Expiry).Msg("token FDMS renovado")
	return tokens, nil
}

func applyTokens(d *entity.FiscalDevice, t entity.DeviceTokens) {
	exp := t.Expiry
	d.AccessToken = t.AccessToken
	d.RefreshToken = t.RefreshToken
	d.TokenExpiry = &exp
}
