package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/EmpoweredVote/EV-Auth/internal/db"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// Sets the role of an existing account directly in Postgres. Used to create
// the first admin, since the role endpoint itself requires one.
func main() {
	email := flag.String("email", "", "email of the account to update")
	roleFlag := flag.String("role", string(users.RoleAdmin), "role to assign (user, instructor, admin)")
	flag.Parse()

	godotenv.Load(".env.local")

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}
	role, err := users.ParseRole(*roleFlag)
	if err != nil {
		log.Fatal(err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}
	defer conn.Close()

	query := fmt.Sprintf("UPDATE %s SET role = $1, updated_at = now() WHERE email = $2", pq.QuoteIdentifier(db.Schema)+".users")
	result, err := conn.Exec(query, string(role), users.NormalizeEmail(*email))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
			log.Fatalf("%s.users does not exist; start the server once to migrate", db.Schema)
		}
		log.Fatalf("Error updating role: %v", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		log.Fatalf("No account with email %s", *email)
	}
	fmt.Printf("✓ %s is now %s\n", *email, role)
}
