package app

import (
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/repos"
)

type Repos struct {
	User         repos.UserRepo
	Medication   repos.MedicationRepo
	Conversation repos.ConversationRepo
}

func wireRepos(clients Clients, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(clients.Neo4j, log),
		Medication:   repos.NewMedicationRepo(clients.Neo4j, log),
		Conversation: repos.NewConversationRepo(clients.Neo4j, log),
	}
}
