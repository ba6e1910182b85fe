package app

import (
	"context"
	"fmt"

	"github.com/poppacare/poppa-backend/internal/clients/agent"
	redisclient "github.com/poppacare/poppa-backend/internal/clients/redis"
	"github.com/poppacare/poppa-backend/internal/clients/twilio"
	"github.com/poppacare/poppa-backend/internal/db"
	"github.com/poppacare/poppa-backend/internal/logger"
)

type Clients struct {
	Neo4j  *db.Neo4jClient
	Memory redisclient.Memory
	Twilio twilio.Client
	Agent  agent.Client
}

func wireClients(ctx context.Context, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	neo, err := db.NewNeo4jFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	neo.BootstrapSchema(ctx)

	memory, err := redisclient.NewMemoryFromEnv(log)
	if err != nil {
		neo.Close(ctx)
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	tw, err := twilio.NewFromEnv(log)
	if err != nil {
		memory.Close()
		neo.Close(ctx)
		return Clients{}, fmt.Errorf("init twilio: %w", err)
	}

	ag, err := agent.NewFromEnv(log)
	if err != nil {
		memory.Close()
		neo.Close(ctx)
		return Clients{}, fmt.Errorf("init agent client: %w", err)
	}

	return Clients{
		Neo4j:  neo,
		Memory: memory,
		Twilio: tw,
		Agent:  ag,
	}, nil
}

func (c Clients) Close(ctx context.Context) {
	if c.Memory != nil {
		c.Memory.Close()
	}
	if c.Neo4j != nil {
		c.Neo4j.Close(ctx)
	}
}
