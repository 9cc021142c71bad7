package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Window franja horaria diaria "HH:MM-HH:MM". Si el fin es menor que el inicio la
// franja cruza la medianoche. El fin es exclusivo salvo 00:00, que se incluye.
type Window struct {
	start, end int // minutos desde medianoche
}

// ParseWindow interpreta "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Window{}, fmt.Errorf("ventana %q: formato esperado HH:MM-HH:MM", s)
	}
	start, err := parseClock(from)
	if err != nil {
		return Window{}, fmt.Errorf("ventana %q: %w", s, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return Window{}, fmt.Errorf("ventana %q: %w", s, err)
	}
	if start == end {
		return Window{}, fmt.Errorf("ventana %q: inicio y fin iguales", s)
	}
	return Window{start: start, end: end}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("hora inválida %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains indica si t (hora local de t) cae dentro de la franja.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.end == 0 && m == 0 {
		return true
	}
	if w.start < w.end {
		return m >= w.start && m < w.end
	}
	return m >= w.start || m < w.end
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.start/60, w.start%60, w.end/60, w.end%60)
}
