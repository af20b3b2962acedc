package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrescris/logiflow/pkg/models"
)

// NewFirebaseApp inicializa Firebase Admin. Sin credentialsPath se usan las
// credenciales por defecto del entorno (ADC).
func NewFirebaseApp(ctx context.Context, projectID, credentialsPath string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}

// Firestore implementa Store sobre cloud.google.com/go/firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, translate(collection, id, err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (f *Firestore) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := f.client.Collection(collection).Doc(id).Create(ctx, normalizeMap(data))
	return translate(collection, id, err)
}

func (f *Firestore) SetMerge(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, normalizeMap(data), firestore.MergeAll)
	return translate(collection, id, err)
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range normalizeMap(fields) {
		if appendValue, ok := v.(ArrayAppendValue); ok {
			v = firestore.ArrayUnion(appendValue.values...)
		}
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	return translate(collection, id, err)
}

func (f *Firestore) Query(ctx context.Context, collection string, filters ...QueryFilter) ([]Document, error) {
	q := f.client.Collection(collection).Query
	for _, filter := range filters {
		q = q.Where(filter.Field, filter.Operator, normalize(filter.Value))
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return toDocuments(snaps), nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return translate(collection, id, err)
}

func (f *Firestore) Watch(ctx context.Context, collection string, fn func([]Document)) error {
	it := f.client.Collection(collection).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch %s: %w", collection, err)
		}
		snaps, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("watch %s: %w", collection, err)
		}
		fn(toDocuments(snaps))
	}
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, Document{ID: s.Ref.ID, Data: s.Data()})
	}
	return docs
}

func translate(collection, id string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, models.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", collection, id, models.ErrAlreadyExists)
	}
	return fmt.Errorf("%s/%s: %w", collection, id, err)
}
