// Package main is the entry point for the Sharecode admin CLI.
// This tool provides operator commands for managing user accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sharecode/sharecode-backend/internal/app"
	"github.com/sharecode/sharecode-backend/internal/config"
	"github.com/sharecode/sharecode-backend/internal/domain"
	"github.com/sharecode/sharecode-backend/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Sharecode Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUser(context.Background(), os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "sharecode-admin: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// userArgs are the parsed arguments of the user command.
type userArgs struct {
	action     string
	email      string
	reason     string
	configPath string
}

func parseUserArgs(args []string) (userArgs, error) {
	if len(args) == 0 {
		return userArgs{}, fmt.Errorf("user: missing action (activate or deactivate)")
	}

	ua := userArgs{action: args[0]}
	if ua.action != "activate" && ua.action != "deactivate" {
		return userArgs{}, fmt.Errorf("user: unknown action %q", ua.action)
	}

	fs := flag.NewFlagSet("user "+ua.action, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&ua.email, "email", "", "email address of the account")
	fs.StringVar(&ua.configPath, "config", "", "path to the configuration file")
	if ua.action == "deactivate" {
		fs.StringVar(&ua.reason, "reason", "", "reason shown to the user")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return userArgs{}, fmt.Errorf("user %s: %w", ua.action, err)
	}
	if ua.email == "" {
		return userArgs{}, fmt.Errorf("user %s: --email is required", ua.action)
	}
	return ua, nil
}

func runUser(ctx context.Context, args []string, out io.Writer) error {
	ua, err := parseUserArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ua.configPath)
	if err != nil {
		return err
	}
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	// Close drains the notification mails raised by the change.
	defer a.Close()

	var user *domain.User
	if ua.action == "activate" {
		user, err = a.Users.ActivateByEmail(ctx, ua.email)
	} else {
		user, err = a.Users.DeactivateByEmail(ctx, ua.email, ua.reason)
	}
	if err != nil {
		return err
	}

	status := "active"
	if !user.Active {
		status = "inactive (" + user.InactiveReason.String() + ")"
	}
	fmt.Fprintf(out, "%s %s: %s\n", user.ID, user.EmailAddress, status)
	return nil
}

func printUsage() {
	fmt.Println(`Sharecode Admin CLI

Usage:
  sharecode-admin <command> [arguments]

Commands:
  user        Manage user accounts (activate, deactivate)
  version     Print version information
  help        Show this help message

Examples:
  sharecode-admin user deactivate --email jane@example.com --reason "Spam reports"
  sharecode-admin user activate --email jane@example.com
  sharecode-admin user activate --email jane@example.com --config /etc/sharecode/config.yaml`)
}
