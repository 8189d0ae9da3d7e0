package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Strob0t/AgentForge/internal/adapter/postgres"
	"github.com/Strob0t/AgentForge/internal/adapter/registryfile"
	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/port/registry"
)

// runAdmin dispatches admin subcommands (migrate, list-agents).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "list-agents":
		return runAdminListAgents(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: agentforge admin <command> [options]

Commands:
  migrate          Apply, roll back or inspect registry migrations (postgres backend)
  list-agents      List all registered agents
  help             Show this help message

Examples:
  agentforge admin migrate --up
  agentforge admin migrate --down 1
  agentforge admin migrate --version
  agentforge admin list-agents
`)
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	up := fs.Bool("up", false, "apply all pending migrations")
	down := fs.Int("down", 0, "roll back the given number of migrations")
	version := fs.Bool("version", false, "print the current migration version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Registry.Backend != "postgres" {
		return fmt.Errorf("migrate requires registry.backend=postgres (current: %s)", cfg.Registry.Backend)
	}

	ctx := context.Background()
	switch {
	case *up:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		fmt.Fprintln(os.Stderr, "migrations applied")
		return nil
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return fmt.Errorf("roll back migrations: %w", err)
		}
		fmt.Fprintf(os.Stderr, "rolled back %d migration(s)\n", *down)
		return nil
	case *version:
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		fmt.Println(v)
		return nil
	default:
		return fmt.Errorf("one of --up, --down N or --version is required")
	}
}

func runAdminListAgents(args []string) error {
	fs := flag.NewFlagSet("list-agents", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	agents, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	if len(agents) == 0 {
		fmt.Println("No agents found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPORT\tCREATED")
	for i := range agents {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			agents[i].ID, agents[i].Name, agents[i].Status, agents[i].Port,
			agents[i].CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func loadAdminStore() (registry.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Registry.Backend == "postgres" {
		pool, err := postgres.NewPool(context.Background(), cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return postgres.NewStore(pool), pool.Close, nil
	}

	store, err := registryfile.New(cfg.Registry.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open registry file: %w", err)
	}
	return store, func() {}, nil
}
