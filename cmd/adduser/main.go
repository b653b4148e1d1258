package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"billsplit/internal/auth"
	"billsplit/internal/config"
	"billsplit/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	email := fs.String("email", "", "Email address used to sign in")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbURL := fs.String("db", "", "Database path or postgres:// URL (default from DATABASE_URL or DB_PATH)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	if *username == "" {
		missing = append(missing, "user")
	}
	if *email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> -email <email> [-password <password>] [-db <db>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if *dbURL == "" {
		cfg, err := config.Load(os.Getenv)
		if err != nil {
			return err
		}
		*dbURL = cfg.DatabaseURL
	}

	db, err := storage.Open(*dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := auth.NewService(db).SignUp(context.Background(), *username, *email, password)
	if errors.Is(err, auth.ErrEmailExists) {
		return fmt.Errorf("user with email %s already exists", *email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Non-terminal input (pipes, tests)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
