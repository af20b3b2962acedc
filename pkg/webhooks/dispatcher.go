// Package webhooks entrega los eventos de la aplicación a las URLs que
// configuran los usuarios (colección "webhooks").
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// HeaderEvent lleva el nombre del evento en cada entrega.
const HeaderEvent = "X-LogiFlow-Event"

// Envelope es el cuerpo que recibe cada destino.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DeliveryResult es el resultado de un POST a un destino.
type DeliveryResult struct {
	WebhookID string `json:"webhook_id"`
	URL       string `json:"url"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OK indica una respuesta 2xx.
func (r DeliveryResult) OK() bool {
	return r.Error == "" && r.Status >= 200 && r.Status < 300
}

// Dispatcher hace el fan-out de un evento a todos los destinos activos.
// No hay reintentos: un fallo se registra y se sigue.
type Dispatcher struct {
	db      store.Store
	client  *http.Client
	timeout time.Duration
	log     *logrus.Logger
	now     func() time.Time

	pending sync.WaitGroup
}

func NewDispatcher(db store.Store, client *http.Client, timeout time.Duration, log *logrus.Logger) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Dispatcher{db: db, client: client, timeout: timeout, log: log, now: time.Now}
}

// Dispatch envía el evento a los destinos activos y espera todas las entregas.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, payload interface{}) ([]DeliveryResult, error) {
	docs, err := d.db.Query(ctx, models.CollectionWebhooks,
		store.QueryFilter{Field: "event", Operator: "==", Value: event},
		store.QueryFilter{Field: "active", Operator: "==", Value: true},
	)
	if err != nil {
		return nil, fmt.Errorf("query webhooks for %s: %w", event, err)
	}
	if len(docs) == 0 {
		return []DeliveryResult{}, nil
	}

	body, err := json.Marshal(Envelope{Event: event, Timestamp: d.now().UTC(), Data: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}

	results := make([]DeliveryResult, len(docs))
	// sin WithContext: un destino caído no cancela a los demás
	var g errgroup.Group
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			url, _ := doc.Data["url"].(string)
			results[i] = d.deliver(ctx, doc.ID, url, event, body)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if !r.OK() {
			d.log.WithFields(logrus.Fields{
				"event":      event,
				"webhook_id": r.WebhookID,
				"url":        r.URL,
				"status":     r.Status,
				"error":      r.Error,
			}).Warn("webhook delivery failed")
		}
	}
	return results, nil
}

func (d *Dispatcher) deliver(ctx context.Context, id, url, event string, body []byte) DeliveryResult {
	res := DeliveryResult{WebhookID: id, URL: url}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)

	resp, err := d.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	if !res.OK() {
		res.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return res
}

// Notify dispara el evento en segundo plano; la request que lo origina no
// espera las entregas.
func (d *Dispatcher) Notify(ctx context.Context, event string, payload interface{}) {
	ctx = context.WithoutCancel(ctx)
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		if _, err := d.Dispatch(ctx, event, payload); err != nil {
			d.log.WithError(err).WithField("event", event).Error("webhook dispatch failed")
		}
	}()
}

// Wait espera las entregas lanzadas con Notify (apagado y pruebas).
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}
