// Package store abstrae las colecciones planas de documentos (Firestore en
// producción, Memory en pruebas). Los documentos son mapas con forma JSON.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Document es un documento leído de una colección.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// QueryFilter se traduce a un Where de Firestore. Memory soporta ==, != e in.
type QueryFilter struct {
	Field    string
	Operator string
	Value    interface{}
}

// Store es el contrato mínimo que usan los servicios.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create falla con models.ErrAlreadyExists si el documento existe.
	Create(ctx context.Context, collection, id string, data map[string]interface{}) error
	// SetMerge hace upsert con merge por campo: los mapas anidados se mezclan,
	// el resto (incluidos arrays) se sobrescribe. Última escritura gana.
	SetMerge(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Update modifica campos de primer nivel de un documento existente.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Query(ctx context.Context, collection string, filters ...QueryFilter) ([]Document, error)
	Delete(ctx context.Context, collection, id string) error
	// Watch llama a fn con la colección completa en cada cambio hasta que ctx termine.
	Watch(ctx context.Context, collection string, fn func([]Document)) error
}

// ArrayAppendValue agrega elementos a un array sin reescribirlo.
type ArrayAppendValue struct {
	values []interface{}
}

// ArrayAppend se usa como valor en Update para agregar al final de un array.
// Igual que ArrayUnion de Firestore, no duplica elementos idénticos.
func ArrayAppend(values ...interface{}) ArrayAppendValue {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, normalize(v))
	}
	return ArrayAppendValue{values: out}
}

// ToDocument convierte un struct (o mapa) a un documento vía JSON.
func ToDocument(v interface{}) (map[string]interface{}, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return data, nil
}

// FromDocument llena out con los datos del documento.
func FromDocument(doc Document, out interface{}) error {
	jsonData, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(jsonData, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", doc.ID, err)
	}
	return nil
}

// normalize lleva cualquier valor a su forma JSON (time.Time -> string, int -> float64...).
func normalize(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, float64, ArrayAppendValue:
		return v
	}
	jsonData, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return v
	}
	return out
}

func normalizeMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = normalize(v)
	}
	return out
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
