package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/catalog-admin/internal/adminusers"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/instance"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/migrate"
	"github.com/angelmondragon/catalog-admin/pkg/security"
)

const generatedPasswordLength = 16

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "adminctl"})

	_ = godotenv.Load()

	if len(os.Args) < 2 || os.Args[1] != "create-admin" {
		fmt.Fprintln(os.Stderr, "usage: adminctl create-admin -email <email> [-password <password>]")
		os.Exit(2)
	}
	flags := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := flags.String("email", "", "admin email")
	password := flags.String("password", "", "admin password; generated when empty")
	_ = flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "adminctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Instance:    instance.GetID(),
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	createAdmin(ctx, logg, cfg, dbClient, *email, *password)
}

func createAdmin(ctx context.Context, logg *logger.Logger, cfg *config.Config, dbClient *db.Client, email, password string) {
	if email == "" {
		fmt.Fprintln(os.Stderr, "missing -email for create-admin")
		os.Exit(1)
	}
	generated := password == ""
	if generated {
		var err error
		password, err = security.GeneratePassword(generatedPasswordLength)
		requireResource(ctx, logg, "password generator", err)
	}

	requireResource(ctx, logg, "migrations", migrate.MaybeRun(ctx, cfg, logg, dbClient))

	svc, err := adminusers.NewService(adminusers.NewRepository(dbClient.DB()), cfg.Password)
	requireResource(ctx, logg, "admin user service", err)

	admin, err := svc.Create(ctx, email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created admin %d (%s)\n", admin.ID, admin.Email)
	if generated {
		fmt.Println("generated password:", password)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
