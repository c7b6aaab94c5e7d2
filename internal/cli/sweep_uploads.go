package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/database"
	"github.com/mrlokans/cookbook/internal/entrypoint"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// SweepUploadsCommand deletes stored images that no recipe, step or avatar
// references. The upload backend comes from the environment configuration.
type SweepUploadsCommand struct {
	DatabasePath string
	UploadDir    string
	MinAge       time.Duration
	DryRun       bool
	Verbose      bool

	cfg *config.Config
	out io.Writer
}

func NewSweepUploadsCommand(cfg *config.Config) *SweepUploadsCommand {
	return &SweepUploadsCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *SweepUploadsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sweep-uploads", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database file")
	fs.StringVar(&cmd.UploadDir, "dir", cmd.cfg.Uploads.Dir, "Upload directory (local backend only)")
	fs.DurationVar(&cmd.MinAge, "min-age", cmd.cfg.UploadSweep.MinAge, "Skip files younger than this")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "List orphaned files without deleting them")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every orphaned file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sweep-uploads [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete uploaded images that nothing references any more.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sweep-uploads -dry-run -verbose\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sweep-uploads -min-age 24h\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SweepUploadsCommand) Run(ctx context.Context) error {
	if cmd.DryRun {
		fmt.Fprintln(cmd.out, "DRY RUN MODE - No files will be deleted")
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cfg := *cmd.cfg
	cfg.Uploads.Dir = cmd.UploadDir
	storage, _, err := entrypoint.OpenStorage(ctx, &cfg)
	if err != nil {
		return err
	}

	result, err := uploads.NewSweeper(storage, db, cmd.MinAge).Sweep(ctx, cmd.DryRun)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if cmd.Verbose {
		for _, f := range result.Orphaned {
			fmt.Fprintf(cmd.out, "  orphaned: %s\n", f.URL)
		}
	}
	fmt.Fprintf(cmd.out, "Scanned %d files, %d orphaned, %d deleted, %d failed\n",
		result.Scanned, len(result.Orphaned), result.Deleted, result.Failed)
	return nil
}
