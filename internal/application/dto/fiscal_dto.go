package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/zimra-fiscal/internal/domain/entity"
)

// CreateFiscalDeviceRequest entrada para registrar un dispositivo fiscal.
type CreateFiscalDeviceRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	DeviceID      int    `json:"device_id" validate:"required,min=1"`
	DeviceSerial  string `json:"device_serial" validate:"required"`
	ActivationKey string `json:"activation_key" validate:"required"`
	BaseURL       string `json:"base_url" validate:"omitempty,url"`
}

// FiscalDeviceResponse salida de un dispositivo (sin activation_key ni tokens).
type FiscalDeviceResponse struct {
	ID                  string          `json:"id"`
	CompanyID           string          `json:"company_id"`
	Name                string          `json:"name"`
	DeviceID            int             `json:"device_id"`
	DeviceSerial        string          `json:"device_serial"`
	BaseURL             string          `json:"base_url"`
	VerificationURL     string          `json:"verification_url"`
	IsDayOpen           bool            `json:"is_day_open"`
	FiscalDayStatus     string          `json:"fiscal_day_status"`
	FiscalDayNo         string          `json:"fiscal_day_no"`
	LastReceiptGlobalNo int64           `json:"last_receipt_global_no"`
	LastReceiptNo       int64           `json:"last_receipt_no"`
	FiscalDayCounters   json.RawMessage `json:"fiscal_day_counters,omitempty"`
	TokenExpiry         *time.Time      `json:"token_expiry,omitempty"`
	LastOperation       *time.Time      `json:"last_operation,omitempty"`
	LastStatusCheck     *time.Time      `json:"last_status_check,omitempty"`
	LastErrorCode       string          `json:"last_error_code,omitempty"`
	LastErrorMessage    string          `json:"last_error_message,omitempty"`
	LastErrorStatus     int             `json:"last_error_status,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func NewFiscalDeviceResponse(d *entity.FiscalDevice) FiscalDeviceResponse {
	return FiscalDeviceResponse{
		ID:                  d.ID,
		CompanyID:           d.CompanyID,
		Name:                d.Name,
		DeviceID:            d.DeviceID,
		DeviceSerial:        d.DeviceSerial,
		BaseURL:             d.BaseURL,
		VerificationURL:     d.VerificationURL(),
		IsDayOpen:           d.IsDayOpen(),
		FiscalDayStatus:     d.FiscalDayStatus,
		FiscalDayNo:         d.FiscalDayNo,
		LastReceiptGlobalNo: d.LastReceiptGlobalNo,
		LastReceiptNo:       d.LastReceiptNo,
		FiscalDayCounters:   d.FiscalDayCounters,
		TokenExpiry:         d.TokenExpiry,
		LastOperation:       d.LastOperation,
		LastStatusCheck:     d.LastStatusCheck,
		LastErrorCode:       d.LastErrorCode,
		LastErrorMessage:    d.LastErrorMessage,
		LastErrorStatus:     d.LastErrorStatus,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

// DayOperationResponse resultado de abrir/cerrar/consultar el día fiscal.
type DayOperationResponse struct {
	Skipped         bool                 `json:"skipped"`
	FiscalDayNo     string               `json:"fiscal_day_no"`
	FiscalDayStatus string               `json:"fiscal_day_status"`
	FiscalDayClosed string               `json:"fiscal_day_closed,omitempty"`
	LastReceiptNo   int64                `json:"last_receipt_no"`
	Message         string               `json:"message"`
	Device          FiscalDeviceResponse `json:"device"`
}

// FiscalRecordResponse datos fiscales de una factura.
type FiscalRecordResponse struct {
	InvoiceID           string     `json:"invoice_id"`
	InvoiceNumber       string     `json:"invoice_number"`
	Fiscalised          bool       `json:"fiscalised"`
	QRURL               string     `json:"qr_url,omitempty"`
	FiscalDate          *time.Time `json:"fiscal_date,omitempty"`
	FiscalDeviceID      int        `json:"fiscal_device_id,omitempty"`
	DeviceSerial        string     `json:"device_serial,omitempty"`
	ReceiptGlobalNumber string     `json:"receipt_global_number,omitempty"`
	ReceiptNumber       string     `json:"receipt_number,omitempty"`
	FiscalDayNo         string     `json:"fiscal_day_no,omitempty"`
	VerificationCode    string     `json:"verification_code,omitempty"`
	VerificationURL     string     `json:"verification_url,omitempty"`
	Message             string     `json:"message,omitempty"`
}

func NewFiscalRecordResponse(inv *entity.Invoice) FiscalRecordResponse {
	f := inv.Fiscal
	return FiscalRecordResponse{
		InvoiceID:           inv.ID,
		InvoiceNumber:       inv.Number,
		Fiscalised:          f.Fiscalised,
		QRURL:               f.QRURL,
		FiscalDate:          f.FiscalDate,
		FiscalDeviceID:      f.FiscalDeviceID,
		DeviceSerial:        f.DeviceSerial,
		ReceiptGlobalNumber: f.ReceiptGlobalNumber,
		ReceiptNumber:       f.ReceiptNumber,
		FiscalDayNo:         f.FiscalDayNo,
		VerificationCode:    f.VerificationCode,
	}
}

// NoteResponse nota de un dispositivo o factura.
type NoteResponse struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

func NewNoteResponses(notes []*entity.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteResponse{ID: n.ID, Subject: n.Subject, Body: n.Body, Level: n.Level, CreatedAt: n.CreatedAt})
	}
	return out
}

// FDMSErrorResponse cuerpo de error cuando FDMS rechaza o no responde.
type FDMSErrorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Status      int    `json:"status"`
	OperationID string `json:"operation_id"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}
