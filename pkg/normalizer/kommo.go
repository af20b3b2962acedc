package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andrescris/logiflow/pkg/models"
)

// Códigos de campo personalizados que leemos de Kommo.
const (
	FieldDNI      = "DNI"
	FieldPhone    = "PHONE"
	FieldEmail    = "EMAIL"
	FieldAddress  = "ADDRESS"
	FieldDistrict = "DISTRICT"
	FieldProvince = "PROVINCE"
)

// Nombres alternativos cuando el campo no tiene field_code.
var fieldNameAliases = map[string][]string{
	FieldDNI:      {"dni", "documento", "nro documento"},
	FieldPhone:    {"phone", "telefono", "teléfono", "celular"},
	FieldEmail:    {"email", "correo"},
	FieldAddress:  {"address", "direccion", "dirección"},
	FieldDistrict: {"district", "distrito"},
	FieldProvince: {"province", "provincia"},
}

type KommoValue struct {
	Value    interface{} `json:"value"`
	EnumID   int64       `json:"enum_id,omitempty"`
	EnumCode string      `json:"enum_code,omitempty"`
}

type KommoCustomField struct {
	FieldID   int64        `json:"field_id"`
	FieldName string       `json:"field_name"`
	FieldCode string       `json:"field_code"`
	FieldType string       `json:"field_type"`
	Values    []KommoValue `json:"values"`
}

type KommoContact struct {
	ID                 FlexID             `json:"id"`
	Name               string             `json:"name"`
	FirstName          string             `json:"first_name"`
	LastName           string             `json:"last_name"`
	IsMain             bool               `json:"is_main"`
	CustomFieldsValues []KommoCustomField `json:"custom_fields_values"`
	CreatedAt          FlexInt64          `json:"created_at"`
	UpdatedAt          FlexInt64          `json:"updated_at"`
}

type KommoLead struct {
	ID                 FlexID             `json:"id"`
	Name               string             `json:"name"`
	Price              Amount             `json:"price"`
	StatusID           FlexInt64          `json:"status_id"`
	PipelineID         FlexInt64          `json:"pipeline_id"`
	CustomFieldsValues []KommoCustomField `json:"custom_fields_values"`
	CreatedAt          FlexInt64          `json:"created_at"`
	UpdatedAt          FlexInt64          `json:"updated_at"`
	Embedded           struct {
		Contacts []KommoContact `json:"contacts"`
	} `json:"_embedded"`
}

// IsLead indica si el cuerpo trae marcas de lead (estado o pipeline) y no
// es un contacto suelto.
func (l KommoLead) IsLead() bool {
	return l.StatusID != 0 || l.PipelineID != 0
}

// MainContact devuelve el contacto principal (o el primero).
func (l KommoLead) MainContact() (KommoContact, bool) {
	contacts := l.Embedded.Contacts
	for _, c := range contacts {
		if c.IsMain {
			return c, true
		}
	}
	if len(contacts) > 0 {
		return contacts[0], true
	}
	return KommoContact{}, false
}

// ReadCustomField devuelve el primer valor no vacío del campo con ese
// field_code (o, si no hay código, con un nombre equivalente).
func ReadCustomField(fields []KommoCustomField, code string) string {
	for _, f := range fields {
		if strings.EqualFold(f.FieldCode, code) {
			if v := firstValue(f.Values); v != "" {
				return v
			}
		}
	}
	aliases := fieldNameAliases[strings.ToUpper(code)]
	for _, f := range fields {
		if f.FieldCode != "" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(f.FieldName))
		for _, alias := range aliases {
			if name == alias {
				if v := firstValue(f.Values); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func firstValue(values []KommoValue) string {
	for _, v := range values {
		var s string
		switch t := v.Value.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// KommoOptions controla la clave cuando falta el DNI.
type KommoOptions struct {
	// SyntheticKey usa KOMMO-<contactId> en vez de rechazar el lead.
	SyntheticKey bool
}

// SyntheticKey arma la clave de respaldo para contactos sin DNI.
func SyntheticKey(contactID string) string {
	return "KOMMO-" + contactID
}

// NormalizeKommo convierte lead + contacto en un Lead de clients, con el DNI
// como clave. Sin DNI devuelve models.ErrMissingDNI salvo que opts lo permita.
func NormalizeKommo(lead *KommoLead, contact KommoContact, opts KommoOptions) (models.Lead, error) {
	fields := append([]KommoCustomField{}, contact.CustomFieldsValues...)
	if lead != nil {
		fields = append(fields, lead.CustomFieldsValues...)
	}

	dni := ReadCustomField(fields, FieldDNI)
	id := dni
	if id == "" {
		if !opts.SyntheticKey || contact.ID == "" {
			return models.Lead{}, models.ErrMissingDNI
		}
		id = SyntheticKey(contact.ID.String())
	}

	name := strings.TrimSpace(contact.Name)
	if name == "" {
		name = joinNonEmpty(" ", contact.FirstName, contact.LastName)
	}
	if name == "" && lead != nil {
		name = strings.TrimSpace(lead.Name)
	}
	if name == "" {
		name = UnknownClientName
	}

	out := models.Lead{
		ID:             id,
		DNI:            dni,
		Nombre:         name,
		Telefono:       NormalizePhone(ReadCustomField(fields, FieldPhone)),
		Email:          ReadCustomField(fields, FieldEmail),
		Direccion:      ReadCustomField(fields, FieldAddress),
		Distrito:       ReadCustomField(fields, FieldDistrict),
		Provincia:      ReadCustomField(fields, FieldProvince),
		Source:         models.SourceKommo,
		KommoContactID: contact.ID.String(),
		CreatedAt:      unixTime(contact.CreatedAt),
		UpdatedAt:      unixTime(contact.UpdatedAt),
	}
	if lead != nil {
		out.KommoLeadID = lead.ID.String()
		if t := unixTime(lead.CreatedAt); t != nil {
			out.CreatedAt = t
		}
		if t := unixTime(lead.UpdatedAt); t != nil && (out.UpdatedAt == nil || t.After(*out.UpdatedAt)) {
			out.UpdatedAt = t
		}
	}
	return out, nil
}
