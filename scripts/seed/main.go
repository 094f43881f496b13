package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/pkg/config"
	"github.com/noah-isme/school-community-api/pkg/database"
)

// Seeds the minimum state a fresh deployment needs: the public scope and the
// first admin account. Both inserts are idempotent via ON CONFLICT.
func main() {
	var (
		adminUsername string
		adminPassword string
		adminName     string
		timeout       time.Duration
	)

	flag.StringVar(&adminUsername, "admin-username", "admin", "Username for the first admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "Password for the first admin account (required)")
	flag.StringVar(&adminName, "admin-name", "Administrator", "Full name for the first admin account")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Seed timeout")
	flag.Parse()

	if adminPassword == "" {
		log.Fatal("-admin-password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	const scopeQuery = `
		INSERT INTO scopes (kind, name)
		VALUES ($1, $2)
		ON CONFLICT (kind, name) DO NOTHING`
	if _, err := db.ExecContext(ctx, scopeQuery, models.ScopePublic, "community"); err != nil {
		log.Fatalf("failed to seed public scope: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	const adminQuery = `
		INSERT INTO users (username, full_name, password_hash, role, account_status, credibility_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO NOTHING`
	if _, err := db.ExecContext(ctx, adminQuery, adminUsername, adminName, string(hash),
		models.RoleAdmin, models.StatusActive, models.DefaultCredibility); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	log.Printf("seed complete: public scope and admin %q ensured", adminUsername)
}
