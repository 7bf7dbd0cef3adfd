// Package main is a development utility for seeding a usable account in a local
// database without running the registration flow. It generates IDs, a slug, and
// a bcrypt password hash, then prints ready-to-run SQL INSERT statements for an
// organization and a user. Do not use seeded accounts in production — register
// through the API so the audit trail records the account creation.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/contactvault/contactvault/internal/db/models"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: seed-account <org-name> <username> <password>")
		os.Exit(1)
	}
	orgName, username, password := os.Args[1], os.Args[2], os.Args[3]

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	settings, err := json.Marshal(models.DefaultOrganizationSettings())
	if err != nil {
		log.Fatal(err)
	}

	orgID := uuid.New().String()
	userID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	fmt.Println("Seed account")
	fmt.Println("  Organization:", orgName)
	fmt.Println("  Username:    ", username)
	fmt.Println()
	fmt.Println("SQL to run against your local database:")
	fmt.Println()
	fmt.Printf("INSERT INTO organizations (id, name, slug, status, settings, created_at, updated_at)\n")
	fmt.Printf("VALUES ('%s', '%s', '%s', 'active', '%s', '%s', '%s');\n",
		orgID, orgName, models.Slugify(orgName), settings, now, now)
	fmt.Println()
	fmt.Printf("INSERT INTO users (id, organization_id, username, email, name, password_hash, is_active, created_at, updated_at)\n")
	fmt.Printf("VALUES ('%s', '%s', '%s', '%s@example.com', '%s', '%s', true, '%s', '%s');\n",
		userID, orgID, username, username, username, hash, now, now)
}
