package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pihla/internal/backup"
	"pihla/internal/codec"
	"pihla/internal/config"
	"pihla/internal/failures"
	"pihla/internal/heic"
	"pihla/internal/journal"
	"pihla/internal/logging"
	"pihla/internal/optimizer"
	"pihla/internal/scan"
)

// Recorder persists run history. journal.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, command string) (journal.Run, error)
	RecordFile(ctx context.Context, rec journal.FileRecord) error
	FinishRun(ctx context.Context, id string, status journal.Status, totals journal.Totals) error
}

// Options selects the passes of an optimize run.
type Options struct {
	// IncludeAssets also optimizes the flat site-assets folder in place.
	IncludeAssets bool
	// WebInPlace also optimizes the web tree in place, backing files up first.
	WebInPlace bool
	// Command labels the run in the journal. Defaults to "optimize".
	Command string
}

// Deps are the collaborators a Runner needs beyond configuration.
type Deps struct {
	Logger   *slog.Logger
	Recorder Recorder
	// Tools overrides post-processor discovery when non-nil.
	Tools *codec.Tools
	// HEIC overrides the HEIC converter when non-nil.
	HEIC optimizer.HEICConverter
}

// Runner executes optimize and restore passes for one site.
type Runner struct {
	cfg       *config.Config
	optimizer *optimizer.Optimizer
	ledger    *backup.Ledger
	recorder  Recorder
	logger    *slog.Logger
}

// NewRunner wires the optimizer, encoder and backup ledger from cfg.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	logger := logging.NewComponentLogger(deps.Logger, "pipeline")

	tools := codec.LookupTools(cfg.Tools.Jpegtran, cfg.Tools.Pngquant, time.Duration(cfg.Tools.Timeout)*time.Second)
	if deps.Tools != nil {
		tools = *deps.Tools
	}
	encoder := codec.NewEncoder(EncoderSettings(cfg), tools, deps.Logger)

	var converter optimizer.HEICConverter
	if cfg.Optimize.ConvertHEIC {
		converter = heic.New(cfg.Optimize.HEICQuality)
		if deps.HEIC != nil {
			converter = deps.HEIC
		}
	}

	ledger := backup.New(cfg.Paths.BackupDir, cfg.Paths.WebDir, cfg.Paths.AssetsDir, cfg.Optimize.TempSuffix, deps.Logger)
	opt := optimizer.New(optimizer.Options{
		Encoder:    encoder,
		HEIC:       converter,
		Backups:    ledger,
		MinSize:    cfg.MinSizeBytes(),
		TempSuffix: cfg.Optimize.TempSuffix,
		Logger:     deps.Logger,
	})

	return &Runner{
		cfg:       cfg,
		optimizer: opt,
		ledger:    ledger,
		recorder:  deps.Recorder,
		logger:    logger,
	}
}

// EncoderSettings maps configuration onto codec settings.
func EncoderSettings(cfg *config.Config) codec.Settings {
	return codec.Settings{
		MaxWidth:            cfg.Optimize.MaxWidth,
		JPEGQuality:         cfg.Optimize.JPEGQuality,
		JPEGProgressive:     cfg.Optimize.JPEGProgressive,
		PNGQuality:          cfg.Optimize.PNGQuality,
		PNGCompressionLevel: cfg.Optimize.PNGCompressionLevel,
		WebPQuality:         cfg.Optimize.WebPQuality,
	}
}

// Ledger exposes the backup ledger.
func (r *Runner) Ledger() *backup.Ledger {
	return r.ledger
}

// Optimize runs the copy pass and any requested in-place passes. It returns
// the summary collected so far together with ctx's error when interrupted.
func (r *Runner) Optimize(ctx context.Context, opts Options) (Summary, error) {
	started := time.Now()
	command := strings.TrimSpace(opts.Command)
	if command == "" {
		command = "optimize"
	}
	runID := r.startRun(ctx, command)
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	summary := Summary{RunID: runID}
	r.sweep(ctx, logger)

	passes := []pass{r.copyPass()}
	if opts.WebInPlace {
		passes = append(passes, r.webInPlacePass())
	}
	if opts.IncludeAssets {
		passes = append(passes, r.assetsPass())
	}

	var runErr error
	for _, p := range passes {
		if err := r.runPass(ctx, p, &summary); err != nil {
			runErr = err
			break
		}
	}

	summary.Duration = time.Since(started)
	summary.Canceled = runErr != nil && isCanceled(runErr)
	r.finishRun(ctx, runID, runErr, journal.Totals{
		FilesProcessed: summary.FilesProcessed,
		Skipped:        summary.Skipped + summary.Conflicts,
		Failed:         summary.Failed,
		BytesSaved:     summary.TotalBytesSaved,
	})

	logger.Info("optimization complete",
		logging.Int("files_processed", summary.FilesProcessed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("conflicts", summary.Conflicts),
		logging.Int("failed", summary.Failed),
		logging.Int64("total_bytes_saved", summary.TotalBytesSaved),
		logging.Duration("duration", summary.Duration),
		logging.Bool("canceled", summary.Canceled),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return summary, runErr
}

// Restore copies every backup over its live location.
func (r *Runner) Restore(ctx context.Context) (RestoreSummary, error) {
	started := time.Now()
	runID := r.startRun(ctx, "restore")
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	result, err := r.ledger.Restore(ctx)
	summary := RestoreSummary{
		RunID:    runID,
		Restored: result.Restored,
		Failed:   len(result.Failed),
		NoBackup: result.NoBackupDir,
		Duration: time.Since(started),
	}
	if r.recorder != nil {
		for _, failure := range result.Failed {
			r.record(ctx, journal.FileRecord{
				RunID:        runID,
				Category:     "backup",
				Path:         failure.Path,
				Outcome:      string(optimizer.OutcomeFailed),
				ErrorKind:    failures.Kind(failure.Err),
				ErrorMessage: failure.Err.Error(),
			})
		}
	}
	r.finishRun(ctx, runID, err, journal.Totals{FilesProcessed: summary.Restored, Failed: summary.Failed})

	if err == nil {
		logger.Info("restore complete",
			logging.Int("restored", summary.Restored),
			logging.Int("failed", summary.Failed),
			logging.Duration("duration", summary.Duration),
			logging.String(logging.FieldEventType, "restore_complete"),
		)
	}
	return summary, err
}

type pass struct {
	root    scan.Root
	inPlace bool
	dest    string
}

func (r *Runner) copyPass() pass {
	return pass{
		root: scan.Root{
			Category:    scan.CategoryUploads,
			Dir:         r.cfg.Paths.UploadDir,
			Recursive:   true,
			IncludeHEIC: r.cfg.Optimize.ConvertHEIC,
			Exclude:     r.excludesFor(r.cfg.Paths.UploadDir),
		},
		dest: r.cfg.Paths.WebDir,
	}
}

func (r *Runner) webInPlacePass() pass {
	return pass{
		root: scan.Root{
			Category:    scan.CategoryWeb,
			Dir:         r.cfg.Paths.WebDir,
			Recursive:   true,
			IncludeHEIC: r.cfg.Optimize.ConvertHEIC,
			Exclude:     r.excludesFor(r.cfg.Paths.WebDir),
		},
		inPlace: true,
	}
}

func (r *Runner) assetsPass() pass {
	return pass{
		root: scan.Root{
			Category:    scan.CategoryAssets,
			Dir:         r.cfg.Paths.AssetsDir,
			IncludeHEIC: r.cfg.Optimize.ConvertHEIC,
			Exclude:     r.excludesFor(r.cfg.Paths.AssetsDir),
		},
		inPlace: true,
	}
}

func (r *Runner) runPass(ctx context.Context, p pass, summary *Summary) error {
	ctx = logging.WithCategory(ctx, string(p.root.Category))
	logger := logging.WithContext(ctx, r.logger)

	if !scan.RootExists(p.root.Dir) {
		logger.Info("nothing to do; folder not found",
			logging.String("dir", p.root.Dir),
			logging.String(logging.FieldEventType, "root_missing"),
		)
		return nil
	}
	logger.Info("scanning",
		logging.String("dir", p.root.Dir),
		logging.Bool("in_place", p.inPlace),
		logging.String(logging.FieldEventType, "pass_start"),
	)

	// Copy-mode outputs claimed so far, keyed by destination path. HEIC and
	// JPEG uploads with the same stem map to one web file; the first in walk
	// order owns it.
	claimed := make(map[string]string)

	for src, walkErr := range scan.Walk(p.root) {
		if err := ctx.Err(); err != nil {
			return err
		}
		var result optimizer.Result
		switch {
		case walkErr != nil:
			err := failures.Wrap(failures.ErrIO, "scan", "walk", src.AbsPath, walkErr)
			logging.WarnWithContext(logger, "unreadable path skipped", "scan_failed",
				logging.String("file", src.AbsPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, failures.Hint(err)),
			)
			result = optimizer.Result{Source: src, Outcome: optimizer.OutcomeFailed, Err: err}
		case p.inPlace:
			result = r.optimizer.InPlace(ctx, src)
		default:
			output := optimizer.DestinationPath(src, p.dest)
			if owner, ok := claimed[output]; ok {
				result = r.optimizer.CopyConflict(ctx, src, output, owner)
				break
			}
			claimed[output] = src.RelPath
			result = r.optimizer.Copy(ctx, src, p.dest)
		}
		if result.Err != nil && isCanceled(result.Err) {
			return result.Err
		}
		summary.Add(result)
		r.recordResult(ctx, summary.RunID, result)
	}
	return ctx.Err()
}

func (r *Runner) sweep(ctx context.Context, logger *slog.Logger) {
	maxAge := time.Duration(r.cfg.Optimize.StaleTempMinutes) * time.Minute
	for _, dir := range []string{r.cfg.Paths.WebDir, r.cfg.Paths.AssetsDir, r.cfg.Paths.BackupDir} {
		result := scan.SweepTemps(ctx, dir, r.cfg.Optimize.TempSuffix, maxAge, logger)
		if len(result.Removed) > 0 {
			logger.Debug("temp sweep finished",
				logging.String("dir", dir),
				logging.Int("removed", len(result.Removed)),
				logging.Int("errors", len(result.Errors)),
			)
		}
	}
}

// excludesFor adds the backup and state trees to the configured excludes when
// they are nested inside dir, so the pipeline never ingests its own output.
func (r *Runner) excludesFor(dir string) []string {
	excludes := append([]string(nil), r.cfg.Optimize.Exclude...)
	for _, nested := range []string{r.cfg.Paths.BackupDir, r.cfg.Paths.StateDir} {
		rel, err := filepath.Rel(dir, nested)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		excludes = append(excludes, rel, rel+"/**")
	}
	return excludes
}

func (r *Runner) startRun(ctx context.Context, command string) string {
	if r.recorder == nil {
		return uuid.NewString()
	}
	run, err := r.recorder.StartRun(ctx, command)
	if err != nil {
		logging.WarnWithContext(r.logger, "journal unavailable; continuing without history", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the journal path in the [journal] config section"),
			logging.String(logging.FieldImpact, "this run is not recorded in history"),
		)
		r.recorder = nil
		return uuid.NewString()
	}
	return run.ID
}

func (r *Runner) finishRun(ctx context.Context, runID string, runErr error, totals journal.Totals) {
	if r.recorder == nil {
		return
	}
	status := journal.StatusCompleted
	switch {
	case runErr == nil:
	case isCanceled(runErr):
		status = journal.StatusCanceled
	default:
		status = journal.StatusFailed
	}
	// The run context may already be canceled; the final row must still land.
	if err := r.recorder.FinishRun(context.WithoutCancel(ctx), runID, status, totals); err != nil {
		logging.WarnWithContext(r.logger, "failed to finalize journal run", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run stays marked running in history"),
		)
	}
}

func (r *Runner) recordResult(ctx context.Context, runID string, result optimizer.Result) {
	if r.recorder == nil {
		return
	}
	rec := journal.FileRecord{
		RunID:       runID,
		Category:    string(result.Source.Category),
		Path:        result.Source.RelPath,
		Output:      result.Output,
		Outcome:     string(result.Outcome),
		BytesBefore: result.BytesBefore,
		BytesAfter:  result.BytesAfter,
	}
	if rec.Path == "" {
		rec.Path = result.Source.AbsPath
	}
	if result.Err != nil {
		rec.ErrorKind = failures.Kind(result.Err)
		rec.ErrorMessage = result.Err.Error()
	}
	r.record(ctx, rec)
}

func (r *Runner) record(ctx context.Context, rec journal.FileRecord) {
	if err := r.recorder.RecordFile(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Debug("journal write failed", logging.Error(err), logging.String(logging.FieldPath, rec.Path))
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
