package fdms

import (
	"strings"
	"time"
)

const fiscalDateLayout = "2006-01-02T15:04:05"

// ParseFiscalDate interpreta receiptFiscalDate (ISO-8601, fracción de segundo opcional y truncada).
// ok=false si el valor está vacío o no se pudo interpretar; el caller decide el respaldo.
func ParseFiscalDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	base, _, _ := strings.Cut(raw, ".")
	if t, err := time.Parse(fiscalDateLayout, base); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Truncate(time.Second), true
	}
	return time.Time{}, false
}
