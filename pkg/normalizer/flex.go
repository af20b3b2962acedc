package normalizer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amount acepta montos como string ("29.90") o número. Nunca falla: un valor
// ausente o mal formado queda en cero.
type Amount struct {
	decimal.Decimal
}

func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = d
	return nil
}

// Float devuelve el monto como float64 (así se guarda en Firestore).
func (a Amount) Float() float64 {
	f, _ := a.Decimal.Float64()
	return f
}

// FlexID acepta IDs numéricos o string sin perder precisión (los IDs de
// Shopify no entran en un float64).
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(strings.TrimSpace(s))
		return nil
	}
	*id = FlexID(string(b))
	return nil
}

func (id FlexID) String() string { return string(id) }

// FlexInt acepta cantidades como número o string. Inválido = 0.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if v, err := strconv.Atoi(s); err == nil {
		*n = FlexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = FlexInt(int(f))
		return nil
	}
	*n = 0
	return nil
}

// FlexInt64 acepta enteros grandes (epoch, IDs de estado) como número o
// string. Inválido = 0, así un campo malo no tumba todo el payload.
type FlexInt64 int64

func (n *FlexInt64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = FlexInt64(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = FlexInt64(int64(f))
		return nil
	}
	*n = 0
	return nil
}

// parseTime acepta RFC3339 (Shopify). Vacío o inválido devuelve nil.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// unixTime convierte segundos epoch (Kommo). Cero devuelve nil.
func unixTime(sec FlexInt64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(int64(sec), 0).UTC()
	return &t
}
