// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/models"
)

// MongoSource reads the access-log collection with an unfiltered find.
type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongo connects to cfg.URI. The driver connects lazily, so an
// unreachable server surfaces on the first Fetch or Ping.
func NewMongo(ctx context.Context, cfg config.MongoConfig, timeout time.Duration) (*MongoSource, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("logscope").
		SetServerSelectionTimeout(timeout).
		SetReadPreference(readpref.SecondaryPreferred())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoSource{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Name implements Source.
func (m *MongoSource) Name() string { return config.SourceMongo }

// Ping implements Source.
func (m *MongoSource) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.SecondaryPreferred())
}

// Fetch implements Source.
func (m *MongoSource) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	return timedFetch(m.Name(), func() ([]models.RawDocument, error) {
		cur, err := m.collection.Find(ctx, bson.D{})
		if err != nil {
			return nil, err
		}
		var raw []bson.M
		if err := cur.All(ctx, &raw); err != nil {
			return nil, err
		}
		docs := make([]models.RawDocument, len(raw))
		for i, d := range raw {
			docs[i] = convertBSONDocument(d)
		}
		return docs, nil
	})
}

// Close disconnects the client.
func (m *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func convertBSONDocument(d bson.M) models.RawDocument {
	out := make(models.RawDocument, len(d))
	for k, v := range d {
		out[k] = convertBSONValue(v)
	}
	return out
}

// convertBSONValue maps driver types onto the plain Go values the
// normalizer understands.
func convertBSONValue(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.Decimal128:
		return x.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case bson.M:
		return map[string]any(convertBSONDocument(x))
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = convertBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertBSONValue(e)
		}
		return out
	default:
		return v
	}
}
