// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"chat-platform/backend/internal/config"
	"chat-platform/backend/internal/db"
	membershipdomain "chat-platform/backend/internal/membership/domain"
	membershiprepo "chat-platform/backend/internal/membership/repository"
	"chat-platform/backend/internal/security"
	userdomain "chat-platform/backend/internal/user/domain"
	userrepo "chat-platform/backend/internal/user/repository"
)

const (
	devUserEmail    = "dev@example.com"
	memberEmail     = "member@example.com"
	unverifiedEmail = "pending@example.com"
	devPassword     = "password123"

	devUserID        = "dev-user-001"
	memberUserID     = "dev-user-002"
	unverifiedUserID = "dev-user-003"
	devGroupID       = "dev-group-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	seedUsers := []*userdomain.User{
		{ID: devUserID, Name: "Dev User", Email: devUserEmail, PasswordHash: passwordHash, EmailVerified: true, CreatedAt: now, UpdatedAt: now},
		{ID: memberUserID, Name: "Member User", Email: memberEmail, PasswordHash: passwordHash, EmailVerified: true, CreatedAt: now, UpdatedAt: now},
		// Unverified account for exercising the email verification flow.
		{ID: unverifiedUserID, Name: "Pending User", Email: unverifiedEmail, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now},
	}
	for _, u := range seedUsers {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	seedMemberships := []*membershipdomain.Membership{
		{GroupID: devGroupID, UserID: devUserID, Role: membershipdomain.RoleOwner, CreatedAt: now},
		{GroupID: devGroupID, UserID: memberUserID, Role: membershipdomain.RoleMember, CreatedAt: now},
	}
	for _, m := range seedMemberships {
		if err := memberships.Create(ctx, m); err != nil {
			log.Fatalf("create membership %s/%s: %v", m.GroupID, m.UserID, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devUserEmail, devPassword)
	fmt.Printf("Member login: %s / %s\n", memberEmail, devPassword)
	fmt.Printf("Unverified login: %s / %s (group %s)\n", unverifiedEmail, devPassword, devGroupID)
}
