package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/neuropipe-io/maxprep/cli/config"
	"github.com/neuropipe-io/maxprep/cli/render"
	"github.com/neuropipe-io/maxprep/log"
	"github.com/neuropipe-io/maxprep/runtime"
	"github.com/neuropipe-io/maxprep/store"
)

// RunCommand returns the run command, the only execution entrypoint.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Condition a recording and apply the Maxwell filter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the parameter document (JSON or YAML)",
				Value: "config.json",
			},
			&cli.StringFlag{
				Name:     "recording",
				Usage:    "Path to the recording metadata sidecar",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "Output directory for the filtered recording and copies",
				Value: "out_dir_maxwell_filter",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (generated when omitted)",
			},
			&cli.StringFlag{
				Name:  "transform",
				Usage: "Path to the Maxwell filter executable",
				Value: "maxprep-maxwell",
			},
			// Output-area flags
			&cli.StringFlag{
				Name:  "store-backend",
				Usage: "Output-area backend: fs or s3",
				Value: "fs",
			},
			&cli.StringFlag{
				Name:  "s3-path",
				Usage: "S3 output area as bucket/prefix (s3 backend)",
			},
			&cli.StringFlag{
				Name:  "s3-region",
				Usage: "AWS region for the S3 backend (optional, uses default chain)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run summary",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored summary output",
			},
		},
		Action: runAction,
	}
}

// storeChoice holds parsed output-area configuration.
type storeChoice struct {
	backend  string // "fs" or "s3"
	outDir   string
	s3Path   string
	s3Region string
}

func runAction(c *cli.Context) error {
	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	raw, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot load config: %v", err), runtime.ExitCodeValidation)
	}

	choice := storeChoice{
		backend:  c.String("store-backend"),
		outDir:   c.String("out-dir"),
		s3Path:   c.String("s3-path"),
		s3Region: c.String("s3-region"),
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	st, err := buildStore(ctx, choice, runID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot open output area: %v", err), runtime.ExitCodeStorage)
	}
	defer func() { _ = st.Close() }()

	logger := log.NewLogger(runID, c.String("recording"))
	transform := runtime.NewExecTransform(c.String("transform"), choice.outDir, logger)

	orchestrator, err := runtime.NewRunOrchestrator(runtime.RunConfig{
		RunID:         runID,
		RecordingPath: c.String("recording"),
		Raw:           raw,
		Store:         st,
		Transform:     transform,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if !c.Bool("quiet") {
		r := render.NewRenderer(os.Stdout, c.Bool("no-color"))
		r.Summary(result)
	}

	return cli.Exit("", runtime.ExitCode(result.Outcome.Status))
}

// buildStore creates the output area for the run. The filesystem backend
// writes into --out-dir; the S3 backend keys artifacts under the run ID.
func buildStore(ctx context.Context, choice storeChoice, runID string) (store.Store, error) {
	switch choice.backend {
	case "fs", "":
		return store.NewFS(choice.outDir)

	case "s3":
		bucket, prefix := store.ParseS3Path(choice.s3Path)
		cfg := store.S3Config{
			Bucket: bucket,
			Prefix: prefix,
			Region: choice.s3Region,
		}
		return store.NewS3Store(ctx, cfg, runID)

	default:
		return nil, fmt.Errorf("unknown store-backend: %s (must be fs or s3)", choice.backend)
	}
}
