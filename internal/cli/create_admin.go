package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/database"
	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/sessions"
)

// CreateAdminCommand creates a privileged account directly in the database.
type CreateAdminCommand struct {
	Username     string
	Email        string
	Password     string
	DatabasePath string
	BcryptCost   int

	out io.Writer
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{out: os.Stdout}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", auth.DefaultPrivilegedUsername, "Username of the admin account")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost used to hash the password")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email <email> -password <password> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an account with the admin role. Admins may edit or delete any\n")
		fmt.Fprintf(os.Stderr, "recipe or comment and reach the /api/admin endpoints.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Password == "" {
		return fmt.Errorf("required flag -password not provided")
	}
	return nil
}

func (cmd *CreateAdminCommand) Run(ctx context.Context) error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// No session is opened, so a throwaway in-memory store is enough.
	svc := auth.NewService(users.NewRepository(db.DB), sessions.NewMemoryStore(), auth.NewHasher(cmd.BcryptCost, false))

	user, err := svc.CreatePrivilegedUser(ctx, cmd.Username, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Fprintf(cmd.out, "Created admin %q (id %d) in %s\n", user.Username, user.ID, cmd.DatabasePath)
	return nil
}
