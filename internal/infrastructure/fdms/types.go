package fdms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ── Endpoints FDMS ────────────────────────────────────────────────────────────

const (
	EndpointToken    = "/api/v1/devices/token"
	EndpointReceipts = "/api/v1/receipts"
	EndpointDayOpen  = "/api/v1/day/open"
	EndpointDayClose = "/api/v1/day/close"
	EndpointStatus   = "/api/v1/status"
)

// Validator respuesta tipada que verifica sus campos obligatorios al decodificar.
type Validator interface {
	Validate() error
}

// FlexString acepta número o texto en JSON (FDMS mezcla ambos para los números de día/recibo).
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s *FlexString) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Int64 interpreta el valor como entero.
func (s *FlexString) Int64() (int64, bool) {
	if s == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(string(*s), 10, 64)
	return n, err == nil
}

// ── Respuestas ────────────────────────────────────────────────────────────────

// TokenRequest cuerpo de POST /api/v1/devices/token.
type TokenRequest struct {
	DeviceSerial  string `json:"device_serial"`
	ActivationKey string `json:"activation_key"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    *int64 `json:"expires_in"`
}

func (r *TokenResponse) Validate() error {
	switch {
	case r.AccessToken == "":
		return missing("access_token")
	case r.RefreshToken == "":
		return missing("refresh_token")
	case r.ExpiresIn == nil:
		return missing("expires_in")
	}
	return nil
}

type OpenDayResponse struct {
	FiscalDayNo *FlexString `json:"fiscalDayNo"`
}

func (r *OpenDayResponse) Validate() error {
	if r.FiscalDayNo == nil {
		return missing("fiscalDayNo")
	}
	return nil
}

type CloseDayResponse struct {
	FiscalDayStatus     string      `json:"fiscalDayStatus"`
	LastReceiptGlobalNo *int64      `json:"lastReceiptGlobalNo"`
	FiscalDayNo         *FlexString `json:"fiscalDayNo"`
	FiscalDayClosed     *FlexString `json:"fiscalDayClosed"`
	LastReceiptNo       *int64      `json:"lastReceiptNo"`
}

func (r *CloseDayResponse) Validate() error {
	if r.FiscalDayStatus == "" {
		return missing("fiscalDayStatus")
	}
	return nil
}

type StatusResponse struct {
	FiscalDayStatus     string          `json:"fiscalDayStatus"`
	LastReceiptGlobalNo *int64          `json:"lastReceiptGlobalNo"`
	LastReceiptNo       *int64          `json:"lastReceiptNo"`
	FiscalDayCounters   json.RawMessage `json:"fiscalDayCounters"`
	LastFiscalDayNo     *FlexString     `json:"lastFiscalDayNo"`
}

func (r *StatusResponse) Validate() error {
	if r.FiscalDayStatus == "" {
		return missing("fiscalDayStatus")
	}
	return nil
}

type ReceiptResponse struct {
	ReceiptFiscalDate string      `json:"receiptFiscalDate"`
	QRCodeURL         string      `json:"qrCodeUrl"`
	DeviceID          *int64      `json:"deviceID"`
	ReceiptGlobalNo   *FlexString `json:"receiptGlobalNo"`
	ReceiptNumber     *FlexString `json:"receiptNumber"`
	FiscalDayNo       *FlexString `json:"fiscalDayNo"`
	VerificationCode  string      `json:"verificationCode"`
}

func (r *ReceiptResponse) Validate() error {
	if r.ReceiptGlobalNo == nil {
		return missing("receiptGlobalNo")
	}
	if r.VerificationCode == "" {
		return missing("verificationCode")
	}
	return nil
}

// ProtocolError la respuesta 2xx no cumple el esquema esperado.
type ProtocolError struct {
	Field  string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("Invalid API response structure: missing %s", e.Field)
	}
	return "Invalid API response structure: " + e.Reason
}

func missing(field string) error { return &ProtocolError{Field: field} }
