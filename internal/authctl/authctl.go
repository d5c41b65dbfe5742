// Package authctl implements the authkeeper administration commands.
package authctl

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var ErrUsage = errors.New("usage: authctl useradd -u <name> [-admin]")

// UserCreator creates accounts with explicit roles.
type UserCreator interface {
	CreateUser(ctx context.Context, username, password string, roles []models.Role) (*models.User, error)
}

// Run dispatches args (without the program name) to a subcommand.
func Run(ctx context.Context, args []string, users UserCreator, w io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "useradd":
		return userAdd(ctx, args[1:], users, w)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

func userAdd(ctx context.Context, args []string, users UserCreator, w io.Writer) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(w)
	name := fs.String("u", "", "user name")
	admin := fs.Bool("admin", false, "grant the ADMIN role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return ErrUsage
	}

	password, err := getPassword(w, "Enter password: ")
	if err != nil {
		return err
	}
	defer wipe(password)
	confirm, err := getPassword(w, "Repeat password: ")
	if err != nil {
		return err
	}
	defer wipe(confirm)
	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	roles := []models.Role{models.RoleUser}
	if *admin {
		roles = append(roles, models.RoleAdmin)
	}

	user, err := users.CreateUser(ctx, *name, string(password), roles)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "created user %s (%s)\n", user.UserName, user.ID)
	return err
}

// getPassword prompts on w and reads a line from the terminal without echo.
func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
