package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/utils"
)

// Neo4jClient owns the process-wide driver. It is constructed once during
// wiring and injected into the repos; there is no lazily-initialized global.
type Neo4jClient struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func NewNeo4jFromEnv(log *logger.Logger) (*Neo4jClient, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4j: logger required")
	}

	uri, err := utils.RequireEnv("NEO4J_URI")
	if err != nil {
		return nil, fmt.Errorf("neo4j: %w", err)
	}
	username, err := utils.RequireEnv("NEO4J_USERNAME")
	if err != nil {
		return nil, fmt.Errorf("neo4j: %w", err)
	}
	password, err := utils.RequireEnv("NEO4J_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("neo4j: %w", err)
	}

	database := strings.TrimSpace(os.Getenv("NEO4J_DATABASE"))
	timeoutSec := utils.GetEnvAsInt("NEO4J_TIMEOUT_SECONDS", 10, log)
	maxPool := utils.GetEnvAsInt("NEO4J_MAX_POOL_SIZE", 50, log)

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Neo4jClient{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4jClient"),
	}, nil
}

// BootstrapSchema creates the uniqueness constraints the lookup code relies
// on. At most one User per phone is enforced here rather than by convention.
func (c *Neo4jClient) BootstrapSchema(ctx context.Context) {
	if c == nil || c.Driver == nil {
		return
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT user_phone_unique IF NOT EXISTS FOR (u:User) REQUIRE u.phone IS UNIQUE`,
		`CREATE CONSTRAINT medication_id_unique IF NOT EXISTS FOR (m:Medication) REQUIRE m.id IS UNIQUE`,
		`CREATE CONSTRAINT conversation_id_unique IF NOT EXISTS FOR (c:Conversation) REQUIRE c.id IS UNIQUE`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			c.log.Warn("schema bootstrap statement failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
