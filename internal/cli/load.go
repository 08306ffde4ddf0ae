package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/covidlab/covidload/internal/config"
	"github.com/covidlab/covidload/internal/loader"
	"github.com/covidlab/covidload/internal/logging"
	"github.com/covidlab/covidload/internal/store"
	"github.com/covidlab/covidload/internal/tui"
	"github.com/covidlab/covidload/pkg/covidload"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the raw CSV datasets into MongoDB",
	Long: `Load reads delimited text files and bulk-inserts their records into
MongoDB collections, one collection per file.

The job list comes from covidload.yaml (see --manifest). Without one, the
built-in list of the four raw COVID datasets is used, resolved against
--data-dir.

Jobs run sequentially. A missing source file skips its job; records the
store rejects are counted and logged without stopping the file; a lost
connection abandons the rest of the file but not the remaining jobs.

Without --all or --job, an interactive menu asks which dataset to load.
In scripts and CI the menu is skipped and every job runs.

Examples:
  # Load everything listed in covidload.yaml
  covidload load --all

  # Load a single dataset
  covidload load --job us-death-rates

  # Built-in job list against a data directory
  covidload load --data-dir data/raw --all`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

type loadFlagValues struct {
	manifest  string
	dataDir   string
	job       string
	all       bool
	batchSize int
}

var loadFlags loadFlagValues

// summaryRound keeps durations in the console summary readable.
const summaryRound = time.Millisecond

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVarP(&loadFlags.manifest, "manifest", "m", "",
		"Path to the job manifest\n"+
			"(default: "+covidload.DefaultManifestName+" in the working directory)")
	loadCmd.Flags().StringVar(&loadFlags.dataDir, "data-dir", "data/raw",
		"Directory holding the raw CSV files, used with the built-in job list")
	loadCmd.Flags().StringVarP(&loadFlags.job, "job", "j", "",
		"Run a single named job")
	loadCmd.Flags().BoolVarP(&loadFlags.all, "all", "a", false,
		"Run every job without asking")
	loadCmd.Flags().IntVar(&loadFlags.batchSize, "batch-size", 0,
		fmt.Sprintf("Records per bulk insert (default %d)", covidload.DefaultBatchSize))
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadFlags.all && loadFlags.job != "" {
		return fmt.Errorf("--all and --job are mutually exclusive: %w", covidload.ErrInvalidConfig)
	}

	logger, closeLogger, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLogger() //nolint:errcheck

	env, err := loadEnv()
	if err != nil {
		return err
	}

	jobs, err := resolveJobs()
	if err != nil {
		return err
	}

	selected, runAll, err := selectJobs(jobs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, err := store.Connect(ctx, env.MongoURI, env.Database, logger)
	if err != nil {
		return err
	}
	defer client.Close(context.Background()) //nolint:errcheck

	orchestrator := loader.New(client, logger)

	var summary covidload.RunSummary
	if runAll {
		summary = orchestrator.RunAll(ctx, selected)
	} else {
		summary = orchestrator.RunAll(ctx, selected[:1])
	}

	printSummary(summary)
	return nil
}

// resolveJobs builds the job list: explicit manifest, then the default
// manifest file, then the built-in list.
func resolveJobs() ([]covidload.LoadJob, error) {
	path := loadFlags.manifest
	explicit := path != ""
	if !explicit {
		path = covidload.DefaultManifestName
	}

	manifest, err := config.LoadManifest(path)
	if err != nil {
		if !explicit && errors.Is(err, config.ErrManifestNotFound) {
			manifest = config.DefaultManifest(loadFlags.dataDir)
		} else {
			return nil, err
		}
	}

	jobs := manifest.LoadJobs()
	if loadFlags.batchSize > 0 {
		for i := range jobs {
			jobs[i].BatchSize = loadFlags.batchSize
		}
	}
	return jobs, nil
}

// selectJobs picks what to run: flags first, then the interactive menu,
// then everything.
func selectJobs(jobs []covidload.LoadJob) ([]covidload.LoadJob, bool, error) {
	if loadFlags.all {
		return jobs, true, nil
	}
	if loadFlags.job != "" {
		job, err := loader.FindJob(jobs, loadFlags.job)
		if err != nil {
			return nil, false, err
		}
		return []covidload.LoadJob{job}, false, nil
	}
	if !tui.IsInteractive() {
		return jobs, true, nil
	}

	choice, err := tui.SelectJob(jobs)
	if err != nil {
		return nil, false, err
	}
	if choice.All {
		return jobs, true, nil
	}
	return []covidload.LoadJob{choice.Job}, false, nil
}

// newLogger builds the shared structured logger from the environment.
func newLogger() (*slog.Logger, func() error, error) {
	return logging.New(logging.LoadConfig())
}

// loadEnv loads the .env file (if any) and reads the connection settings.
func loadEnv() (config.Env, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return config.Env{}, fmt.Errorf("loading %s: %w: %w", envFile, covidload.ErrInvalidConfig, err)
		}
	} else {
		_ = godotenv.Load()
	}
	return config.EnvFromProcess()
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ninterrupt received, stopping after the current batch...")
		cancel()
	}()

	return ctx, cancel
}

func printSummary(summary covidload.RunSummary) {
	fmt.Printf("run %s finished in %s\n", summary.RunID, summary.Duration.Round(summaryRound))
	for _, o := range summary.Outcomes {
		switch {
		case o.Skipped:
			fmt.Printf("  %-28s skipped (source not accessible)\n", o.Job.Name)
		case o.Fatal != nil:
			fmt.Printf("  %-28s aborted: %d inserted, %d failed\n", o.Job.Name, o.Inserted, o.Failed)
		default:
			fmt.Printf("  %-28s %d inserted, %d failed\n", o.Job.Name, o.Inserted, o.Failed)
		}
	}
	fmt.Printf("total: %d files, %d inserted, %d failed\n",
		summary.FilesAttempted(), summary.TotalInserted(), summary.TotalFailed())
}
