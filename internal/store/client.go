// Package store connects to the MongoDB destination and performs the
// unordered bulk inserts the load pipeline depends on. Connection
// establishment retries transient failures; everything after the initial
// ping fails fast so a severed connection surfaces as a job-level error.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/covidlab/covidload/internal/retry"
	"github.com/covidlab/covidload/pkg/covidload"
)

// Client wraps a connected mongo client scoped to one database and
// implements covidload.Store.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect establishes a client against the given URI, scoped to the named
// database, and verifies reachability with a ping. Transient failures are
// retried with exponential backoff; the returned error wraps
// covidload.ErrConnectionFailed once retries are exhausted.
// Panics if logger is nil.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if uri == "" {
		return nil, fmt.Errorf("connection URI is required: %w", covidload.ErrInvalidConfig)
	}
	if database == "" {
		return nil, fmt.Errorf("database name is required: %w", covidload.ErrInvalidConfig)
	}

	classifier := retry.NewMongoErrorClassifier()
	strategy := retry.NewExponentialBackoff(covidload.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(covidload.DefaultRetryInitialDelay),
		retry.WithMaxDelay(covidload.DefaultRetryMaxDelay),
	)
	executor := retry.NewExecutor(classifier, strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("store connection retry",
				"attempt", attempt,
				"delay", delay.String(),
				"error", err.Error())
		})

	opts := options.Client().
		ApplyURI(uri).
		SetWriteConcern(writeconcern.Majority())

	var client *mongo.Client
	err := executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		client, err = mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}

		// Connect does no I/O; the ping is what proves reachability.
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", covidload.ErrConnectionFailed, describeConnectError(err, uri))
	}

	logger.Info("connected to document store", "database", database)

	return &Client{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}, nil
}

// Collection returns a handle for the named collection.
func (c *Client) Collection(name string) covidload.Collection {
	return &mongoCollection{
		coll:   c.db.Collection(name),
		logger: c.logger,
	}
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// describeConnectError augments raw driver errors with actionable guidance.
func describeConnectError(err error, uri string) error {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"):
		return fmt.Errorf(`connection refused

Possible causes:
  - MongoDB is not running at the configured address
  - Wrong host or port in MONGO_URI
  - Firewall blocking the connection

Original error: %w`, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`cannot resolve the host in %q

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, redactURI(uri), err)

	case strings.Contains(errStr, "authentication failed") || strings.Contains(errStr, "auth error"):
		return fmt.Errorf(`authentication failed

Possible causes:
  - Wrong username or password in MONGO_URI
  - User does not have access to the database

Original error: %w`, err)

	case strings.Contains(errStr, "server selection error") || strings.Contains(errStr, "server selection timeout"):
		return fmt.Errorf(`no reachable server within the selection timeout

Possible causes:
  - MongoDB is down or still starting
  - Replica set has no reachable primary
  - TLS settings do not match the server

Original error: %w`, err)

	default:
		return err
	}
}

// redactURI strips credentials from a connection URI before it reaches an
// error message or a log record.
func redactURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at < 0 {
		return uri
	}
	scheme := strings.Index(uri, "://")
	if scheme < 0 {
		return uri[at+1:]
	}
	return uri[:scheme+3] + uri[at+1:]
}
