package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mkazlouski/sparkpad/internal/config"
	"github.com/mkazlouski/sparkpad/internal/storage"
)

// RestoreCommand replaces a catalog's contents from a JSON backup file.
type RestoreCommand struct {
	DataDir   string
	Database  string
	InputPath string
}

func NewRestoreCommand() *RestoreCommand {
	return &RestoreCommand{}
}

func (cmd *RestoreCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)

	fs.StringVar(&cmd.DataDir, "data", config.DefaultDataDir, "Directory holding the database files")
	fs.StringVar(&cmd.Database, "db", "", "Database to restore into (defaults to the current one)")
	fs.StringVar(&cmd.InputPath, "file", "", "Backup file to restore (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s restore -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Replace a database's contents with a JSON backup.\n")
		fmt.Fprintf(os.Stderr, "The backup is validated first; an invalid file leaves the database untouched.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.InputPath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *RestoreCommand) Run() error {
	data, err := os.ReadFile(cmd.InputPath)
	if err != nil {
		return fmt.Errorf("reading backup file: %w", err)
	}

	_, cancel, m, err := openManager(cmd.DataDir)
	if err != nil {
		return err
	}
	defer cancel()

	engine := storage.NewEngine(m.Registry())
	if err := engine.RestoreJSON(cmd.Database, data); err != nil {
		return fmt.Errorf("restoring: %w", err)
	}

	fmt.Printf("Restored %s from %s\n", cmd.targetName(m), cmd.InputPath)
	return nil
}

func (cmd *RestoreCommand) targetName(m *storage.Manager) string {
	if cmd.Database != "" {
		return cmd.Database
	}
	return m.Registry().CurrentName()
}
