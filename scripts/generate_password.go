// scripts/generate_password.go prints a bcrypt hash for seeding staff or test accounts
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/pkg/auth"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/generate_password.go <password>")
	}
	password := os.Args[1]

	if len(password) < 8 || !auth.IsStrong(password) {
		log.Println("⚠️ Password would be rejected at registration: use 8+ characters with upper, lower, digit and one of @$!%*?&")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	passwords := auth.NewPasswordManager(cfg.Security.BcryptCost)

	hash, err := passwords.HashPassword(password)
	if err != nil {
		log.Fatal("Error generating hash:", err)
	}
	fmt.Printf("Hash (cost %d): %s\n", cfg.Security.BcryptCost, hash)

	if err := passwords.VerifyPassword(password, hash); err != nil {
		log.Fatal("Hash verification failed:", err)
	}
	fmt.Println("✅ Hash verified successfully!")
}
