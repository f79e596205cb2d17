// Command migrate manages the database schema and bootstraps users.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/persons-api/internal/config"
	"github.com/iliyamo/persons-api/internal/database"
	"github.com/iliyamo/persons-api/internal/logger"
	"github.com/iliyamo/persons-api/internal/model"
	"github.com/iliyamo/persons-api/internal/repository"
	"github.com/iliyamo/persons-api/internal/utils"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.Env, "persons-migrate")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(database.OptionsFrom(cfg))
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	switch args[0] {
	case "up":
		if err := database.MigrateUp(db); err != nil {
			log.Fatal("migrate up failed", zap.Error(err))
		}
		log.Info("migrations applied")
	case "down":
		if err := database.MigrateDown(db); err != nil {
			log.Fatal("migrate down failed", zap.Error(err))
		}
		log.Info("last migration rolled back")
	case "status":
		if err := database.MigrationStatus(db); err != nil {
			log.Fatal("migrate status failed", zap.Error(err))
		}
	case "createuser":
		if err := createUser(cfg, repository.NewUserRepo(db), args[1:]); err != nil {
			log.Fatal("createuser failed", zap.Error(err))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
}

func createUser(cfg config.Config, users *repository.UserRepo, args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ExitOnError)
	email := fs.String("email", "", "login email (required)")
	password := fs.String("password", "", "password; empty leaves the account without a usable password")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	staff := fs.Bool("staff", false, "mark the user as staff")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := model.UserPayload{
		Email:     model.Some(*email),
		FirstName: model.Some(*first),
		LastName:  model.Some(*last),
		IsStaff:   model.Some(*staff),
	}
	if *password != "" {
		in.Password = model.Some(*password)
	}
	if err := in.Validate(false); err != nil {
		return err
	}

	u := &model.User{IsActive: true}
	in.Apply(u)
	u.PasswordHash = utils.UnusablePassword()
	if in.Password.Present() {
		hash, err := utils.NewPasswordHasher(cfg.BcryptCost).Hash(in.Password.Value)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	fmt.Printf("created user %d <%s>\n", u.ID, u.Email)
	return nil
}

func usage() {
	fmt.Println("Usage: migrate <command>")
	fmt.Println("Commands:")
	fmt.Println("  up          apply all pending migrations")
	fmt.Println("  down        roll back the last migration")
	fmt.Println("  status      print migration status")
	fmt.Println("  createuser  -email E [-password P] [-first-name F] [-last-name L] [-staff]")
}
