package entity

import (
	"encoding/json"
	"time"
)

// Estados del día fiscal reportados por FDMS.
const (
	FiscalDayOpened = "FISCALDAYOPENED"
	FiscalDayClosed = "FISCALDAYCLOSED"
)

// URLs de verificación FDMS según el ambiente del dispositivo.
const (
	ProductionBaseURL   = "https://fiscal.telco.co.zw"
	DefaultBaseURL      = "https://fiscal-demo.telco.co.zw"
	verificationURLProd = "https://fdms.zimra.co.zw"
	verificationURLTest = "https://fdmstest.zimra.co.zw"
)

// FiscalDevice dispositivo fiscal registrado ante ZIMRA. Único por (CompanyID, DeviceID).
type FiscalDevice struct {
	ID            string
	CompanyID     string
	Name          string
	DeviceID      int    // asignado por la autoridad tributaria
	DeviceSerial  string
	ActivationKey string // secreto; sellado en reposo
	BaseURL       string

	AccessToken  string
	RefreshToken string
	TokenExpiry  *time.Time

	FiscalDayStatus     string
	FiscalDayNo         string
	LastReceiptGlobalNo int64
	LastReceiptNo       int64
	FiscalDayCounters   json.RawMessage // opaco para este sistema
	LastOperation       *time.Time
	LastStatusCheck     *time.Time

	LastErrorCode    string
	LastErrorMessage string
	LastErrorStatus  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDayOpen solo es verdadero con FISCALDAYOPENED; estados desconocidos o vacíos cuentan como no abiertos.
func (d *FiscalDevice) IsDayOpen() bool {
	return d.FiscalDayStatus == FiscalDayOpened
}

// IsDayClosed informa si el último estado conocido es FISCALDAYCLOSED.
func (d *FiscalDevice) IsDayClosed() bool {
	return d.FiscalDayStatus == FiscalDayClosed
}

// TokenValid: el access token solo vale mientras now < TokenExpiry.
func (d *FiscalDevice) TokenValid(now time.Time) bool {
	return d.TokenExpiry != nil && now.Before(*d.TokenExpiry)
}

// VerificationURL portal público de verificación de recibos correspondiente al BaseURL.
func (d *FiscalDevice) VerificationURL() string {
	if d.BaseURL == ProductionBaseURL {
		return verificationURLProd
	}
	return verificationURLTest
}

// DeviceTokens campos de sesión que se persisten juntos tras obtener un token.
type DeviceTokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// DeviceDiagnostic instantánea del último fallo contra FDMS.
type DeviceDiagnostic struct {
	Code      string
	Message   string
	Status    int
	CheckedAt time.Time
}

// DayStateUpdate campos del día fiscal a escribir tras open/close/status.
// Los punteros nil no se modifican.
type DayStateUpdate struct {
	FiscalDayStatus     *string
	FiscalDayNo         *string
	LastReceiptGlobalNo *int64
	LastReceiptNo       *int64
	FiscalDayCounters   json.RawMessage
	LastOperation       *time.Time
	LastStatusCheck     *time.Time
}

// Apply aplica la actualización sobre el dispositivo en memoria.
func (u DayStateUpdate) Apply(d *FiscalDevice) {
	if u.FiscalDayStatus != nil {
		d.FiscalDayStatus = *u.FiscalDayStatus
	}
	if u.FiscalDayNo != nil {
		d.FiscalDayNo = *u.FiscalDayNo
	}
	if u.LastReceiptGlobalNo != nil {
		d.LastReceiptGlobalNo = *u.LastReceiptGlobalNo
	}
	if u.LastReceiptNo != nil {
		d.LastReceiptNo = *u.LastReceiptNo
	}
	if u.FiscalDayCounters != nil {
		d.FiscalDayCounters = u.FiscalDayCounters
	}
	if u.LastOperation != nil {
		d.LastOperation = u.LastOperation
	}
	if u.LastStatusCheck != nil {
		d.LastStatusCheck = u.LastStatusCheck
	}
}
