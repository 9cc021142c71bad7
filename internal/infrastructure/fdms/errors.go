package fdms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"syscall"
	"time"
)

// Códigos de error estructurado.
const (
	CodeConnectionRefused        = "CONNECTION_REFUSED"
	CodeTimeout                  = "TIMEOUT"
	CodeConnectionFailed         = "CONNECTION_FAILED"
	CodeInvalidResponse          = "INVALID_RESPONSE"
	CodeInvalidResponseStructure = "INVALID_RESPONSE_STRUCTURE"
	CodeUnknown                  = "UNKNOWN"
	CodeUnknownError             = "UNKNOWN_ERROR"

	// CodeCanceled el llamador abandonó la solicitud; no es un fallo del dispositivo.
	CodeCanceled = "REQUEST_CANCELLED"

	// CodeDuplicateInvoice el número de factura ya existe en FDMS.
	CodeDuplicateInvoice = "RCPT013"
)

var validationLabels = map[string]string{
	"DEVICE_NOT_FOUND":        "Device not registered in FDMS",
	"INVALID_OPERATION_STATE": "Device in invalid state for requested operation",
	"MISSING_REQUIRED_FIELD":  "Required configuration missing in device",
	"AUTH_TOKEN_EXPIRED":      "Authentication token has expired",
}

// Error fallo clasificado de una llamada a FDMS. Status es 0 para fallos de transporte.
type Error struct {
	Code        string
	Message     string
	OperationID string
	Status      int
	Err         error `json:"-"`
}

// Error único formato de presentación, usado en logs, notas y respuestas HTTP.
func (e *Error) Error() string {
	op := e.OperationID
	if op == "" {
		op = "None provided"
	}
	return fmt.Sprintf("FDMS Error [%s]\nStatus: %d\nOperation ID: %s\nMessage: %s", e.Code, e.Status, op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport fallo de red antes de obtener respuesta HTTP.
func (e *Error) IsTransport() bool {
	switch e.Code {
	case CodeConnectionRefused, CodeTimeout, CodeConnectionFailed:
		return e.Status == 0
	}
	return false
}

// AsError extrae el *Error de una cadena de errores.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// statusError respuesta HTTP no 2xx con el cuerpo crudo.
type statusError struct {
	StatusCode int
	Body       []byte
}

func (e *statusError) Error() string { return fmt.Sprintf("fdms: HTTP %d", e.StatusCode) }

// nonJSONError cuerpo 2xx que no es JSON.
type nonJSONError struct{ err error }

func (e *nonJSONError) Error() string { return "fdms: respuesta no JSON: " + e.err.Error() }
func (e *nonJSONError) Unwrap() error { return e.err }

type problemDetails struct {
	ErrorCode   string
	Type        string
	Detail      string
	Title       string
	OperationID string
	Status      *int
	Errors      map[string][]string
}

// decodeProblem extrae cada campo por separado; un campo con forma inesperada se ignora
// sin invalidar el resto del cuerpo.
func decodeProblem(raw map[string]json.RawMessage) problemDetails {
	pd := problemDetails{
		ErrorCode:   rawString(raw["errorCode"]),
		Type:        rawString(raw["type"]),
		Detail:      rawString(raw["detail"]),
		Title:       rawString(raw["title"]),
		OperationID: rawString(raw["operationID"]),
		Errors:      rawFieldErrors(raw["errors"]),
	}
	var status int
	if v, ok := raw["status"]; ok && json.Unmarshal(v, &status) == nil {
		pd.Status = &status
	}
	return pd
}

// rawString texto de un valor JSON escalar. Objetos, listas y null dan "".
func rawString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	switch v[0] {
	case '{', '[', 'n':
		return ""
	}
	return string(v)
}

// rawFieldErrors mapa campo → mensajes. Acepta listas o un único valor por campo.
func rawFieldErrors(v json.RawMessage) map[string][]string {
	var fields map[string]json.RawMessage
	if len(v) == 0 || json.Unmarshal(v, &fields) != nil {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for name, val := range fields {
		var list []json.RawMessage
		if json.Unmarshal(val, &list) == nil {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				if m := rawString(item); m != "" {
					msgs = append(msgs, m)
				}
			}
			out[name] = msgs
			continue
		}
		if m := rawString(val); m != "" {
			out[name] = []string{m}
		}
	}
	return out
}

// Classify traduce cualquier fallo de una llamada a FDMS al error estructurado.
// baseURL y timeout solo se usan para redactar los mensajes de transporte.
func Classify(err error, baseURL string, timeout time.Duration) *Error {
	if err == nil {
		return nil
	}
	if fe, ok := AsError(err); ok {
		return fe
	}

	var (
		se  *statusError
		pe  *ProtocolError
		te  *json.UnmarshalTypeError
		nje *nonJSONError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeCanceled, Message: "Request cancelled by caller", Err: err}
	case isRefused(err):
		return &Error{
			Code:    CodeConnectionRefused,
			Message: fmt.Sprintf("Connection refused. Please verify the server is running and accessible: %s", baseURL),
			Err:     err,
		}
	case isTimeout(err):
		return &Error{
			Code:    CodeTimeout,
			Message: fmt.Sprintf("Connection timed out after %d seconds. Server might be overloaded.", int(timeout.Seconds())),
			Err:     err,
		}
	case isTransport(err):
		return &Error{Code: CodeConnectionFailed, Message: "Connection error: " + err.Error(), Err: err}
	case errors.As(err, &se):
		return classifyStatus(se)
	case errors.As(err, &pe):
		return &Error{Code: CodeInvalidResponseStructure, Message: pe.Error(), Err: err}
	case errors.As(err, &te):
		return &Error{
			Code:    CodeInvalidResponseStructure,
			Message: fmt.Sprintf("Invalid API response structure: field %s has unexpected type", te.Field),
			Err:     err,
		}
	case errors.As(err, &nje):
		return &Error{Code: CodeInvalidResponse, Message: "Server returned non-JSON response", Err: err}
	default:
		return &Error{Code: CodeUnknownError, Message: err.Error(), Err: err}
	}
}

func classifyStatus(se *statusError) *Error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(se.Body, &raw); err != nil {
		return &Error{
			Code:    CodeInvalidResponse,
			Message: "Server returned non-JSON response",
			Status:  se.StatusCode,
			Err:     se,
		}
	}
	pd := decodeProblem(raw)

	fe := &Error{
		Code:        firstNonEmpty(pd.ErrorCode, pd.Type, CodeUnknown),
		Message:     firstNonEmpty(pd.Detail, pd.Title, "Unknown error occurred"),
		OperationID: pd.OperationID,
		Status:      se.StatusCode,
		Err:         se,
	}
	if pd.Status != nil {
		fe.Status = *pd.Status
	}
	if se.StatusCode == 422 {
		fe.Message = validationMessage(pd)
	}
	return fe
}

// validationMessage compone el mensaje de un 422: etiqueta, detalle y una línea por campo.
func validationMessage(pd problemDetails) string {
	label, ok := validationLabels[pd.ErrorCode]
	if !ok {
		label = "Validation error occurred"
	}
	parts := []string{label}
	if pd.Detail != "" {
		parts = append(parts, pd.Detail)
	}

	fields := make([]string, 0, len(pd.Errors))
	for f := range pd.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("Field %s: %s", f, strings.Join(pd.Errors[f], ", ")))
	}
	return strings.Join(parts, "\n")
}

func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && !dnsErr.IsTimeout
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTransport(err error) bool {
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
