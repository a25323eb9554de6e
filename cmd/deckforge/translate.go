package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deckforge/deckforge/internal/cleanup"
	"github.com/deckforge/deckforge/internal/files"
	"github.com/deckforge/deckforge/internal/glossary"
	"github.com/deckforge/deckforge/internal/logger"
	"github.com/deckforge/deckforge/internal/pipeline"
	"github.com/deckforge/deckforge/internal/prompt"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	modelName        string
	embeddingModel   string
	workerCount      int
	perRecordTimeout time.Duration
	alignment        string
	backendKind      string
	glossaryPath     string
	glossaryFormat   string
	yes              bool
	logFilePath      string
	artifactDir      string
	sourceLang       string
	targetLang       string
	allowEnv         bool
	envOnly          bool
	debug            bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <input.pptx> <output.pptx>",
		Short: "Translate a slide deck",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				_ = cmd.Usage()
				return fmt.Errorf("input and output files are required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.modelName, "model", "gemini-3-flash-preview", "Translation model name")
	cmd.Flags().StringVar(&opts.embeddingModel, "embedding-model", "", "Embedding model name (semantic alignment)")
	cmd.Flags().IntVar(&opts.workerCount, "workers", pipeline.DefaultWorkers, fmt.Sprintf("Number of concurrent records in flight (%d-%d)", pipeline.MinWorkers, pipeline.MaxWorkers))
	cmd.Flags().DurationVar(&opts.perRecordTimeout, "record-timeout", pipeline.DefaultPerRecordTimeout, "Per-record translate/align timeout")
	cmd.Flags().StringVar(&opts.alignment, "alignment", string(pipeline.AlignmentSemantic), "Run-alignment strategy (semantic or llm)")
	cmd.Flags().StringVar(&opts.backendKind, "backend", string(pipeline.BackendGemini), "Translation backend (gemini or openai)")
	cmd.Flags().StringVar(&opts.glossaryPath, "glossary", "", "Path to a glossary file")
	cmd.Flags().StringVar(&opts.glossaryFormat, "glossary-format", "json", "Glossary file format (json, yaml, csv)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().StringVar(&opts.artifactDir, "artifact-dir", "", "Directory to persist intermediate per-stage records")
	cmd.Flags().StringVar(&opts.sourceLang, "source", "English", "Source language (name or code)")
	cmd.Flags().StringVar(&opts.targetLang, "target", "", "Target language (name or code, required)")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) < 2 {
		return fmt.Errorf("input and output files are required")
	}
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Warning: expected 2 arguments but got %d. Did you forget quotes around file paths?\n", len(args))
		fmt.Fprintf(os.Stderr, "  Using input: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "  Using output: %s\n", args[1])
	}
	if err := validateDeckPathExtensions(args[0], args[1]); err != nil {
		return err
	}
	if opts.targetLang == "" {
		return fmt.Errorf("--target is required")
	}

	logLevel := logger.LevelInfo
	if opts.debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)

	if !opts.yes {
		if _, err := os.Stat(args[1]); err == nil {
			confirmed, err := prompt.DefaultConfirmer().ConfirmOverwrite(args[1], opts.yes)
			if err != nil {
				return fmt.Errorf("overwrite confirmation failed: %w", err)
			}
			if !confirmed {
				return fmt.Errorf("aborted: output file exists")
			}
		}
	}

	startTime := time.Now()

	actualKey, source, err := resolveAPIKey(opts.backendKind, opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "service", opts.backendKind, "source", source)

	sourceLang, err := resolveLanguageName(opts.sourceLang)
	if err != nil {
		return err
	}
	targetLang, err := resolveLanguageName(opts.targetLang)
	if err != nil {
		return err
	}

	deckBytes, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input deck: %w", err)
	}

	mgr := pipeline.NewManager(nil, nil)
	submitOpts := pipeline.SubmitOptions{
		SourceLang:        sourceLang,
		TargetLang:        targetLang,
		GlossaryPath:      opts.glossaryPath,
		GlossaryFormat:    glossary.Format(opts.glossaryFormat),
		AlignmentStrategy: pipeline.AlignmentStrategy(opts.alignment),
		Backend:           pipeline.BackendKind(opts.backendKind),
		APIKey:            actualKey,
		Model:             opts.modelName,
		EmbeddingModel:    opts.embeddingModel,
		WorkerCount:       opts.workerCount,
		PerRecordTimeout:  opts.perRecordTimeout,
		ArtifactDir:       opts.artifactDir,
	}

	jobID, err := mgr.Submit(deckBytes, submitOpts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	status, err := pollUntilTerminal(ctx, mgr, jobID)
	printUsageStats(status.Usage, opts.backendKind, opts.modelName)
	if err != nil {
		return err
	}

	switch status.State {
	case pipeline.JobCancelled:
		logger.Warn("Translation canceled")
		return nil
	case pipeline.JobFailed:
		return status.Err
	}

	result, err := mgr.Result(jobID)
	if err != nil {
		return err
	}
	if err := files.AtomicWrite(args[1], result, 0o644); err != nil {
		return fmt.Errorf("writing output deck: %w", err)
	}

	logger.Info("Translation completed", "duration", time.Since(startTime), "job_id", jobID)
	return nil
}

// pollUntilTerminal polls Status until the job reaches a terminal
// state, cancelling the job if ctx is cancelled (e.g. by SIGINT).
func pollUntilTerminal(ctx context.Context, mgr *pipeline.Manager, jobID string) (pipeline.JobStatus, error) {
	var lastMilestone string
	for {
		select {
		case <-ctx.Done():
			_ = mgr.Cancel(jobID)
		default:
		}

		status, err := mgr.Status(jobID)
		if err != nil {
			return pipeline.JobStatus{}, err
		}
		if status.Milestone != lastMilestone {
			logger.Info("Progress", "milestone", status.Milestone, "percent", status.Progress)
			lastMilestone = status.Milestone
		}
		if status.State == pipeline.JobCompleted || status.State == pipeline.JobFailed || status.State == pipeline.JobCancelled {
			return status, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

var supportedDeckExtensions = map[string]struct{}{
	".pptx": {},
}

const supportedDeckExtensionsLabel = ".pptx"

func validateDeckPathExtensions(inputPath, outputPath string) error {
	if err := validateDeckExtension("input", inputPath); err != nil {
		return err
	}
	return validateDeckExtension("output", outputPath)
}

func validateDeckExtension(kind, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedDeckExtensions[ext]; ok {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported %s extension %q (supported: %s)", kind, ext, supportedDeckExtensionsLabel)
}
