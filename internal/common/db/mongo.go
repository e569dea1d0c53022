package db

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/common/logger"
)

// NewMongoClient connects and pings, retrying while the server comes up.
// It returns the client together with the database named by the URL path.
func NewMongoClient(ctx context.Context, log *logger.Logger, url string) (*mongo.Client, *mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse datastore url: %w", err)
	}

	opts := options.Client().
		ApplyURI(url).
		SetAppName("margarine-worker").
		SetMaxPoolSize(constants.DBPoolMaxOpenConns).
		SetMinPoolSize(constants.DBPoolMinOpenConns).
		SetMaxConnIdleTime(constants.DBPoolConnMaxIdleTime).
		SetConnectTimeout(constants.DBPoolConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	for attempt := 1; attempt <= constants.DBPoolMaxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, constants.DBPoolConnectTimeout)
		err = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if err == nil {
			name := DatabaseName(cs.Database)
			log.Infof("document store connected: database=%s", name)
			return client, client.Database(name), nil
		}

		log.Warnf("failed to reach document store (attempt %d/%d): %v", attempt, constants.DBPoolMaxAttempts, err)

		if attempt == constants.DBPoolMaxAttempts {
			break
		}
		if sleepErr := sleepCtx(ctx, constants.DBPoolRetryDelay); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	_ = client.Disconnect(context.Background())
	return nil, nil, fmt.Errorf("failed to connect to document store: %w", err)
}

// DatabaseName maps a URL path to a database name: the leading slash is
// dropped and any further slashes become underscores.
func DatabaseName(path string) string {
	name := strings.TrimPrefix(path, "/")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" {
		return constants.DefaultDatabaseName
	}
	return name
}
