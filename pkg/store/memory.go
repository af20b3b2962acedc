package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/andrescris/logiflow/pkg/models"
)

// Memory implementa Store en memoria. Lo usan las pruebas y el modo local.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]map[string]map[string]interface{}
	watchers map[string][]chan struct{}
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]map[string]map[string]interface{}),
		watchers: make(map[string][]chan struct{}),
	}
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, models.ErrNotFound)
	}
	return Document{ID: id, Data: deepCopy(doc).(map[string]interface{})}, nil
}

func (m *Memory) Create(_ context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	if _, ok := m.data[collection][id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, models.ErrAlreadyExists)
	}
	m.collection(collection)[id] = normalizeMap(data)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) SetMerge(_ context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	coll := m.collection(collection)
	existing, ok := coll[id]
	if !ok {
		existing = make(map[string]interface{})
	}
	mergeInto(existing, normalizeMap(data))
	coll[id] = existing
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	doc, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, models.ErrNotFound)
	}
	for k, v := range normalizeMap(fields) {
		appendValue, isAppend := v.(ArrayAppendValue)
		if !isAppend {
			doc[k] = v
			continue
		}
		current, _ := doc[k].([]interface{})
		for _, item := range appendValue.values {
			if !containsValue(current, item) {
				current = append(current, item)
			}
		}
		doc[k] = current
	}
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, filters ...QueryFilter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0, len(m.data[collection]))
	for id, data := range m.data[collection] {
		match := true
		for _, f := range filters {
			ok, err := matches(data[f.Field], f)
			if err != nil {
				return nil, err
			}
			if !ok {
				match = false
				break
			}
		}
		if match {
			docs = append(docs, Document{ID: id, Data: deepCopy(data).(map[string]interface{})})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.data[collection], id)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Watch(ctx context.Context, collection string, fn func([]Document)) error {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}

	m.mu.Lock()
	m.watchers[collection] = append(m.watchers[collection], ch)
	m.mu.Unlock()

	defer m.unwatch(collection, ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			docs, err := m.Query(ctx, collection)
			if err != nil {
				return err
			}
			fn(docs)
		}
	}
}

func (m *Memory) unwatch(collection string, ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.watchers[collection]
	for i, w := range list {
		if w == ch {
			m.watchers[collection] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (m *Memory) notify(collection string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// collection debe llamarse con el lock tomado.
func (m *Memory) collection(name string) map[string]map[string]interface{} {
	coll, ok := m.data[name]
	if !ok {
		coll = make(map[string]map[string]interface{})
		m.data[name] = coll
	}
	return coll
}

func matches(value interface{}, f QueryFilter) (bool, error) {
	want := normalize(f.Value)
	switch f.Operator {
	case "==":
		return reflect.DeepEqual(value, want), nil
	case "!=":
		return !reflect.DeepEqual(value, want), nil
	case "in":
		list, ok := want.([]interface{})
		if !ok {
			return false, fmt.Errorf("operator in requires a list, got %T", f.Value)
		}
		return containsValue(list, value), nil
	}
	return false, fmt.Errorf("operator %q not supported by memory store", f.Operator)
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[k] = deepCopy(v)
	}
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = deepCopy(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	}
	return v
}
