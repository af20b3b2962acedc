package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// Projection mantiene en memoria la última foto de las colecciones de leads,
// alimentada por los listeners en tiempo real del store.
type Projection struct {
	db  store.Store
	log *logrus.Logger

	// pausa mínima entre reconexiones de un mismo listener
	restartEvery time.Duration

	mu    sync.RWMutex
	items map[string][]QueueItem
	ready map[string]chan struct{}
	down  map[string]error
}

// errWatchClosed: el listener terminó sin error antes de que ctx se cancelara.
var errWatchClosed = errors.New("listener closed")

func NewProjection(db store.Store, log *logrus.Logger) *Projection {
	p := &Projection{
		db:    db,
		log:   log,
		restartEvery: 5 * time.Second,
		items:        make(map[string][]QueueItem),
		ready:        make(map[string]chan struct{}),
		down:         make(map[string]error),
	}
	for _, coll := range models.LeadCollections {
		p.ready[coll] = make(chan struct{})
	}
	return p
}

// Run escucha todas las colecciones de leads hasta que ctx termine. Un
// listener que se cae se reabre solo; mientras tanto Healthy lo reporta.
func (p *Projection) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, coll := range models.LeadCollections {
		coll := coll
		g.Go(func() error {
			p.watch(ctx, coll)
			return nil
		})
	}
	return g.Wait()
}

func (p *Projection) watch(ctx context.Context, coll string) {
	limiter := rate.NewLimiter(rate.Every(p.restartEvery), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		err := p.db.Watch(ctx, coll, func(docs []store.Document) {
			p.replace(coll, docs)
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errWatchClosed
		}
		p.markDown(coll, err)
		p.log.WithError(err).WithField("collection", coll).Error("queue listener stopped, restarting")
	}
}

func (p *Projection) markDown(coll string, err error) {
	p.mu.Lock()
	p.down[coll] = err
	p.mu.Unlock()
}

// Healthy devuelve error si algún listener está caído y la cola puede estar
// desactualizada.
func (p *Projection) Healthy() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.down) == 0 {
		return nil
	}
	var parts []string
	for _, coll := range models.LeadCollections {
		if err, ok := p.down[coll]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", coll, err))
		}
	}
	return fmt.Errorf("queue listeners down: %s", strings.Join(parts, "; "))
}

// WaitReady bloquea hasta recibir la primera foto de cada colección.
func (p *Projection) WaitReady(ctx context.Context) error {
	for _, ch := range p.ready {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Projection) replace(collection string, docs []store.Document) {
	items := make([]QueueItem, 0, len(docs))
	for _, doc := range docs {
		var lead models.Lead
		if err := store.FromDocument(doc, &lead); err != nil {
			p.log.WithError(err).WithField("collection", collection).Warn("skipping malformed lead")
			continue
		}
		lead.ID = doc.ID
		items = append(items, QueueItem{Collection: collection, Lead: lead})
	}

	p.mu.Lock()
	p.items[collection] = items
	delete(p.down, collection)
	ch := p.ready[collection]
	select {
	case <-ch:
	default:
		close(ch)
	}
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{"collection": collection, "count": len(items)}).Debug("queue snapshot updated")
}

func (p *Projection) all() []QueueItem {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []QueueItem
	for _, coll := range models.LeadCollections {
		out = append(out, p.items[coll]...)
	}
	return out
}

// Snapshot devuelve la cola filtrada con la foto más reciente.
func (p *Projection) Snapshot(f Filter) []QueueItem {
	return Apply(p.all(), f)
}

// DistinctValues lista los valores presentes de una columna en la cola
// (sin terminales), para las opciones del filtro.
func (p *Projection) DistinctValues(column string) []string {
	seen := make(map[string]bool)
	values := []string{}
	for _, it := range p.all() {
		if it.CallStatus.Terminal() {
			continue
		}
		v := it.Column(column)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
