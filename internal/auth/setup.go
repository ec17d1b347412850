package auth

import (
	"log"

	"github.com/EmpoweredVote/EV-Auth/internal/db"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
)

func Init() {
	if err := db.EnsureSchema(db.DB, db.Schema); err != nil {
		log.Fatal("Failed to ensure schema app_auth: ", err)
	}

	if err := users.Migrate(db.DB); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	log.Println("Auth module initialized")
}
