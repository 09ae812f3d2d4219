// seed-users creates or updates a user and prints a bearer token for it.
// Identity is owned by an external provider; this tool stands in for it in
// development and for service accounts.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-users -username eng1 -name "Engineer One" -role engineering
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
)

func main() {
	username := flag.String("username", "", "Required: login name")
	name := flag.String("name", "", "Display name (defaults to username)")
	role := flag.String("role", "", "Required: admin|engineering|inventory|manufacture|sales|purchasing")
	inactive := flag.Bool("inactive", false, "Create or update the user as inactive")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before seeding")
	flag.Parse()

	if *username == "" || *role == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *name == "" {
		*name = *username
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		if err := models.AutoMigrate(config.GetDB()); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
	}

	active := !*inactive
	user, err := models.UpsertUser(ctx, &models.NewUser{
		Username: *username,
		Name:     *name,
		Role:     models.UserRole(*role),
		IsActive: &active,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to upsert user: %v\n", err)
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("user id=%d username=%q role=%s active=%t\n", user.ID, user.Username, user.Role, active)
	fmt.Println(token)
}
