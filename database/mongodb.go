package database

import (
	"context"
	"errors"
	"fmt"
	"race-league-go/logging"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// URI builds the connection string for the configured server
func (c Config) URI() string {
	if c.Username != "" && c.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=%s",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", c.Host, c.Port, c.Database)
}

type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *logging.Logger
}

func NewMongoConnection(config Config) (*MongoDB, error) {
	logger := logging.WithPrefix("MongoDB")
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = MediumTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if config.Username != "" && config.Password != "" {
		logger.Infof("Connecting with authentication as user: %s", config.Username)
	} else {
		logger.Info("Connecting without authentication")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI()))
	if err != nil {
		logger.Errorf("Failed to connect: %v", err)
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		logger.Errorf("Failed to ping: %v", err)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(config.Database)
	logger.Infof("Successfully connected to %s:%s database=%s", config.Host, config.Port, config.Database)

	return &MongoDB{
		client:   client,
		database: database,
		logger:   logger,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := WithShortTimeout(context.Background())
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		m.logger.Errorf("Error disconnecting: %v", err)
	} else {
		m.logger.Info("Connection closed successfully")
	}
	return err
}

func (m *MongoDB) TestConnection(ctx context.Context) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	if err := m.client.Ping(ctx, nil); err != nil {
		m.logger.Errorf("Ping test failed: %v", err)
		return fmt.Errorf("MongoDB ping failed: %w", err)
	}

	m.logger.Debug("Ping test successful")
	return nil
}

func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// RunInTransaction runs fn inside a multi-document transaction. Standalone
// servers reject transactions; in that case fn is run again without one and
// its writes are applied sequentially, so callers must tolerate partial
// application if a later write fails.
func (m *MongoDB) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err == nil {
		return nil
	}
	if !IsTransactionUnsupported(err) {
		return err
	}

	m.logger.Warnf("Transactions not supported by this deployment, applying writes sequentially: %v", err)
	return fn(ctx)
}

// IsTransactionUnsupported recognises the server errors returned by
// deployments that are not replica sets or sharded clusters
func IsTransactionUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "IllegalOperation" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction numbers are only allowed on a replica set member or mongos") ||
		strings.Contains(msg, "transactions are not supported") ||
		strings.Contains(msg, "IllegalOperation")
}
