package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/covidlab/covidload/pkg/covidload"
)

// mongoCollection adapts a *mongo.Collection to covidload.Collection.
type mongoCollection struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

// InsertMany performs one unordered bulk insert. Duplicate keys and other
// per-document rejections come back as failures inside the result, not as
// an error: the server attempted every document. Only failures that doom
// the whole batch surface as a non-nil error, and network-level ones wrap
// covidload.ErrConnectionFailed so the caller abandons the remaining
// batches.
func (c *mongoCollection) InsertMany(ctx context.Context, docs []covidload.Document) (covidload.InsertResult, error) {
	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = doc
	}

	_, err := c.coll.InsertMany(ctx, payload, options.InsertMany().SetOrdered(false))
	if err == nil {
		return covidload.InsertResult{Inserted: len(docs)}, nil
	}
	return classifyBulkError(err, len(docs), c.Name(), c.logger)
}

// classifyBulkError turns a bulk insert error into either a per-record
// result (the server attempted every document) or a whole-batch error.
// A write concern shortfall does not void the per-record tally: the
// acknowledgment level of the accepted documents is what fell short, and
// that is logged rather than counted.
func classifyBulkError(err error, docCount int, name string, logger *slog.Logger) (covidload.InsertResult, error) {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		failures := make([]covidload.RecordFailure, 0, len(bwe.WriteErrors))
		for _, we := range bwe.WriteErrors {
			failures = append(failures, covidload.RecordFailure{
				RecordIndex: we.Index,
				Code:        we.Code,
				Reason:      we.Message,
			})
		}
		if bwe.WriteConcernError != nil {
			logger.Warn("write concern not satisfied",
				"collection", name,
				"code", bwe.WriteConcernError.Code,
				"error", bwe.WriteConcernError.Message)
		}
		return covidload.InsertResult{
			Inserted: docCount - len(failures),
			Failures: failures,
		}, nil
	}

	if isConnectionError(err) {
		return covidload.InsertResult{}, fmt.Errorf("%w: %w", covidload.ErrConnectionFailed, err)
	}

	return covidload.InsertResult{}, err
}

func (c *mongoCollection) CountDocuments(ctx context.Context) (int64, error) {
	return c.coll.CountDocuments(ctx, bson.D{})
}

// isConnectionError reports whether err indicates the connection to the
// store is gone, as opposed to the server rejecting the operation.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"server selection error",
		"server selection timeout",
		"no reachable servers",
		"connection refused",
		"connection reset",
		"broken pipe",
		"socket was unexpectedly closed",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
