package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mkazlouski/sparkpad/internal/config"
)

// DatabasesCommand lists the catalogs found in the data directory.
type DatabasesCommand struct {
	DataDir string
}

func NewDatabasesCommand() *DatabasesCommand {
	return &DatabasesCommand{}
}

func (cmd *DatabasesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("databases", flag.ExitOnError)

	fs.StringVar(&cmd.DataDir, "data", config.DefaultDataDir, "Directory holding the database files")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s databases [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the databases in the data directory and mark the current one.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *DatabasesCommand) Run() error {
	ctx, cancel, m, err := openManager(cmd.DataDir)
	if err != nil {
		return err
	}
	defer cancel()

	names, err := m.InitializedDatabaseNames(ctx)
	if err != nil {
		return err
	}
	current, err := m.CurrentDatabaseName(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		marker := " "
		if name == current {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}
