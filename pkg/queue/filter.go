// Package queue arma la cola de trabajo del call center a partir de las
// colecciones de leads: excluye estados terminales, filtra y ordena.
package queue

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andrescris/logiflow/pkg/models"
)

const minutesPerDay = 24 * 60

// QueueItem es un lead de la cola junto a la colección de donde viene.
type QueueItem struct {
	Collection string `json:"collection"`
	models.Lead
}

// Filter agrupa los filtros de la tabla. Los minutos son desde medianoche en
// Location; DateTo es inclusivo (todo ese día).
type Filter struct {
	Columns  map[string][]string
	DateFrom *time.Time
	DateTo   *time.Time
	TimeFrom *int
	TimeTo   *int
	Location *time.Location
}

// ParseClock convierte "HH:MM" en minutos desde medianoche.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: clock %q must be HH:MM", models.ErrValidation, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", models.ErrValidation, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %q", models.ErrValidation, s)
	}
	return h*60 + m, nil
}

// InTimeRange compara minutos desde medianoche. Con from > to el rango cruza
// la medianoche (22:00-02:00) y basta con cumplir uno de los dos extremos.
func InTimeRange(m, from, to int) bool {
	if from <= to {
		return m >= from && m <= to
	}
	return m >= from || m <= to
}

// ParseFilter lee los filtros de la query de GET /api/call-center/queue:
// columnas filtrables con valores separados por coma, date_from/date_to
// (YYYY-MM-DD) y time_from/time_to (HH:MM).
func ParseFilter(q url.Values, loc *time.Location) (Filter, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := Filter{Columns: make(map[string][]string), Location: loc}

	for _, col := range models.FilterableColumns {
		for _, raw := range q[col] {
			for _, v := range strings.Split(raw, ",") {
				if v = strings.TrimSpace(v); v != "" {
					f.Columns[col] = append(f.Columns[col], v)
				}
			}
		}
	}

	var err error
	if f.DateFrom, err = parseDate(q.Get("date_from"), loc); err != nil {
		return Filter{}, err
	}
	if f.DateTo, err = parseDate(q.Get("date_to"), loc); err != nil {
		return Filter{}, err
	}
	if f.TimeFrom, err = parseClockParam(q.Get("time_from")); err != nil {
		return Filter{}, err
	}
	if f.TimeTo, err = parseClockParam(q.Get("time_to")); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", models.ErrValidation, s)
	}
	return &t, nil
}

func parseClockParam(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	m, err := ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Match aplica los filtros de columna, fecha y hora a un lead.
func (f Filter) Match(lead models.Lead) bool {
	for col, values := range f.Columns {
		if len(values) == 0 {
			continue
		}
		if !containsFold(values, lead.Column(col)) {
			return false
		}
	}

	if f.DateFrom == nil && f.DateTo == nil && f.TimeFrom == nil && f.TimeTo == nil {
		return true
	}
	ts := timestampOf(lead)
	if ts.IsZero() {
		return false
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	ts = ts.In(loc)

	if f.DateFrom != nil && ts.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !ts.Before(f.DateTo.AddDate(0, 0, 1)) {
		return false
	}

	if f.TimeFrom != nil || f.TimeTo != nil {
		from, to := 0, minutesPerDay-1
		if f.TimeFrom != nil {
			from = *f.TimeFrom
		}
		if f.TimeTo != nil {
			to = *f.TimeTo
		}
		if !InTimeRange(ts.Hour()*60+ts.Minute(), from, to) {
			return false
		}
	}
	return true
}

// Apply produce la cola: sin estados terminales, filtrada y ordenada por
// última modificación descendente (empates por ID).
func Apply(items []QueueItem, f Filter) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, it := range items {
		if it.CallStatus.Terminal() {
			continue
		}
		if !f.Match(it.Lead) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastModified(), out[j].LastModified()
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// los filtros de fecha/hora miran la fecha de ingreso del lead
func timestampOf(lead models.Lead) time.Time {
	if lead.CreatedAt != nil {
		return *lead.CreatedAt
	}
	return lead.LastModified()
}

func containsFold(values []string, v string) bool {
	for _, want := range values {
		if strings.EqualFold(want, v) {
			return true
		}
	}
	return false
}
