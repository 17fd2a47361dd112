// Command migrate applies the tenant registry schema (tenants, tenant_domains,
// users, orders) to the shared database.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eta/backend/internal/infrastructure/config"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var errUsage = errors.New("invalid arguments")

// invocation is everything a subcommand may need
type invocation struct {
	args     []string
	dir      string
	out      io.Writer
	migrator *migration.Migrator
}

type command struct {
	name    string
	args    string
	summary string
	needsDB bool
	run     func(inv *invocation) error
}

var commands = []command{
	{name: "up", summary: "Apply every pending migration", needsDB: true, run: func(inv *invocation) error {
		return inv.migrator.Up()
	}},
	{name: "down", summary: "Roll back every migration", needsDB: true, run: func(inv *invocation) error {
		return inv.migrator.Down()
	}},
	{name: "step", args: "<n>", summary: "Apply n migrations, negative n rolls back", needsDB: true, run: func(inv *invocation) error {
		n, err := intArg(inv.args, 0)
		if err != nil {
			return err
		}
		return inv.migrator.Steps(n)
	}},
	{name: "goto", args: "<version>", summary: "Migrate up or down to a timestamp version", needsDB: true, run: func(inv *invocation) error {
		v, err := versionArg(inv.args, 0)
		if err != nil {
			return err
		}
		return inv.migrator.GoTo(uint(v))
	}},
	{name: "status", summary: "Show applied and pending migrations", needsDB: true, run: func(inv *invocation) error {
		current, dirty, err := inv.migrator.Version()
		if err != nil {
			return err
		}
		statuses, err := migration.Statuses(inv.dir, current)
		if err != nil {
			return err
		}
		return printStatus(inv.out, current, dirty, statuses)
	}},
	{name: "force", args: "<version>", summary: "Mark a version as applied to clear a dirty state", needsDB: true, run: func(inv *invocation) error {
		v, err := versionArg(inv.args, 0)
		if err != nil {
			return err
		}
		return inv.migrator.Force(int(v))
	}},
	{name: "create", args: "<name> [description]", summary: "Write an empty up/down pair", run: func(inv *invocation) error {
		if len(inv.args) == 0 {
			return fmt.Errorf("%w: migration name required", errUsage)
		}
		description := strings.Join(inv.args[1:], " ")
		f, err := migration.Create(inv.dir, inv.args[0], description, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(inv.out, f.UpPath)
		fmt.Fprintln(inv.out, f.DownPath)
		return nil
	}},
	{name: "list", summary: "List migration files without touching the database", run: func(inv *invocation) error {
		names, err := migration.List(inv.dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(inv.out, name)
		}
		return nil
	}},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%w: missing argument %d", errUsage, i+1)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[i])
	}
	return n, nil
}

// versionArg parses a migration version; versions are 14 digit timestamps
func versionArg(args []string, i int) (uint64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%w: version required", errUsage)
	}
	v, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a migration version", errUsage, args[i])
	}
	return v, nil
}

// resolveDir picks the migrations directory: the flag, then ./migrations,
// then the repository root relative to the binary.
func resolveDir(flagValue string) (string, error) {
	dir := flagValue
	if dir == "" {
		dir = defaultMigrationsPath
		if _, err := os.Stat(dir); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					dir = candidate
				}
			}
		}
	}
	return filepath.Abs(dir)
}

func printStatus(out io.Writer, current uint, dirty bool, statuses []migration.Status) error {
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(out, "database version: %d (%s)\n", current, state)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tMIGRATION")
	for _, s := range statuses {
		mark := "pending"
		if s.Applied {
			mark = "applied"
		}
		fmt.Fprintf(w, "%s\t%s\n", mark, s.Name)
	}
	return w.Flush()
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "Tenant registry schema migrations")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: migrate [-path dir] [-log-level level] <command> [arguments]")
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s %s\t%s\n", c.name, c.args, c.summary)
	}
	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Database settings come from the server configuration (config.toml or")
	fmt.Fprintln(out, "ETA_DATABASE_HOST, ETA_DATABASE_PORT, ETA_DATABASE_USER, ETA_DATABASE_PASSWORD,")
	fmt.Fprintln(out, "ETA_DATABASE_DBNAME, ETA_DATABASE_SSLMODE).")
}

func main() {
	dirFlag := flag.String("path", "", "migrations directory (default ./migrations)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(os.Stderr)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	dir, err := resolveDir(*dirFlag)
	if err != nil {
		log.Fatal("Failed to resolve migrations directory", zap.Error(err))
	}
	inv := &invocation{args: args[1:], dir: dir, out: os.Stdout}

	if cmd.needsDB {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal("Failed to load configuration", zap.Error(err))
		}
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database", zap.Error(err))
		}
		m, err := migration.New(db, dir, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		defer m.Close()
		inv.migrator = m
	}

	log.Debug("Running migration command",
		zap.String("command", cmd.name),
		zap.String("migrations_path", dir),
	)
	if err := cmd.run(inv); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\nusage: migrate %s %s\n", err, cmd.name, cmd.args)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", cmd.name), zap.Error(err))
	}
}
