// Package testinfra starts throwaway MongoDB containers for integration
// tests.
package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
)

const MongoImage = "mongo:7.0"

type MongoContainer struct {
	*mongodb.MongoDBContainer
	URI string
}

func StartMongo(ctx context.Context) (*MongoContainer, error) {
	ctr, err := mongodb.Run(ctx,
		MongoImage,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start mongodb: %w", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &MongoContainer{MongoDBContainer: ctr, URI: uri}, nil
}
