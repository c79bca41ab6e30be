// Package cli implements the offline maintenance commands reachable from the
// binary's command switch. Each command owns its flag set and runs against
// the data directory directly, without a server.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mkazlouski/sparkpad/internal/config"
	"github.com/mkazlouski/sparkpad/internal/storage"
)

const commandTimeout = 30 * time.Second

// openManager builds and starts a manager over the data directory, waiting
// for readiness.
func openManager(dataDir string) (context.Context, context.CancelFunc, *storage.Manager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)

	m := storage.NewManager(dataDir, config.DefaultDatabaseName)
	m.Start()
	if err := m.WhenReady(ctx); err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("initializing storage in %s: %w", dataDir, err)
	}
	return ctx, cancel, m, nil
}

// BackupCommand exports a catalog to a JSON backup file.
type BackupCommand struct {
	DataDir    string
	Database   string
	OutputPath string
}

func NewBackupCommand() *BackupCommand {
	return &BackupCommand{}
}

func (cmd *BackupCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)

	fs.StringVar(&cmd.DataDir, "data", config.DefaultDataDir, "Directory holding the database files")
	fs.StringVar(&cmd.Database, "db", "", "Database to back up (defaults to the current one)")
	fs.StringVar(&cmd.OutputPath, "output", "", "Output file path (defaults to stdout)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backup [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export a database as a JSON backup.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *BackupCommand) Run() error {
	_, cancel, m, err := openManager(cmd.DataDir)
	if err != nil {
		return err
	}
	defer cancel()

	engine := storage.NewEngine(m.Registry())
	records, err := engine.Backup(cmd.Database)
	if err != nil {
		return fmt.Errorf("backing up: %w", err)
	}

	data, err := storage.MarshalBackup(records)
	if err != nil {
		return err
	}

	if cmd.OutputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(cmd.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing backup file: %w", err)
	}
	fmt.Printf("Backed up %d records to %s\n", len(records), cmd.OutputPath)
	return nil
}
