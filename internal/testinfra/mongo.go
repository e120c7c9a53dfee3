// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/logscope/internal/config"
)

const (
	// MongoImage is the MongoDB image started for access-log tests.
	MongoImage = "mongo:7.0"

	mongoPort = "27017/tcp"
)

// MongoContainer is a disposable MongoDB holding seeded access logs.
type MongoContainer struct {
	testcontainers.Container
	URI string
}

// MongoOption adjusts how StartMongo launches the container.
type MongoOption func(*mongoSettings)

type mongoSettings struct {
	image        string
	startTimeout time.Duration
}

// WithMongoImage overrides MongoImage.
func WithMongoImage(image string) MongoOption {
	return func(s *mongoSettings) { s.image = image }
}

// WithStartTimeout bounds the wait for MongoDB to accept connections.
func WithStartTimeout(d time.Duration) MongoOption {
	return func(s *mongoSettings) { s.startTimeout = d }
}

// StartMongo launches MongoDB without authentication and terminates it
// when t finishes. The test is skipped when Docker is unreachable and
// fails if the container does not come up.
func StartMongo(ctx context.Context, t testing.TB, opts ...MongoOption) *MongoContainer {
	t.Helper()
	if !dockerReachable() {
		t.Skip("docker is not available")
	}

	s := mongoSettings{image: MongoImage, startTimeout: time.Minute}
	for _, opt := range opts {
		opt(&s)
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        s.image,
			ExposedPorts: []string{mongoPort},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(mongoPort),
				wait.ForLog("Waiting for connections"),
			).WithStartupTimeout(s.startTimeout),
		},
		Started: true,
		Logger:  testLogger{t: t},
	})
	if c != nil {
		terminateOnCleanup(t, c)
	}
	if err != nil {
		t.Fatalf("start mongo: %v", err)
	}

	endpoint, err := c.PortEndpoint(ctx, mongoPort, "mongodb")
	if err != nil {
		t.Fatalf("mongo endpoint: %v", err)
	}
	return &MongoContainer{Container: c, URI: endpoint + "/?directConnection=true"}
}

// SourceConfig points a Mongo source at database.collection in this
// container.
func (c *MongoContainer) SourceConfig(database, collection string) config.MongoConfig {
	return config.MongoConfig{URI: c.URI, Database: database, Collection: collection}
}

// Seed inserts access-log documents into database.collection.
func (c *MongoContainer) Seed(ctx context.Context, database, collection string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect(ctx) //nolint:errcheck

	if _, err := client.Database(database).Collection(collection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert %d documents: %w", len(docs), err)
	}
	return nil
}
