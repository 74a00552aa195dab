// Package optimizer resizes and re-encodes single images, either replacing the
// live file (in-place mode) or writing a derived copy into a mirrored
// destination tree (copy mode).
//
// Every write goes to a temporary sibling first and is published by rename.
// In-place commits additionally require the new encoding to be strictly
// smaller than the original.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"pihla/internal/codec"
	"pihla/internal/failures"
	"pihla/internal/fileutil"
	"pihla/internal/logging"
	"pihla/internal/scan"
)

// HEICConverter turns a HEIC file into JPEG bytes.
type HEICConverter interface {
	ToJPEG(ctx context.Context, path string) ([]byte, error)
}

// BackupCapturer stores the pristine bytes of a file before it is replaced.
type BackupCapturer interface {
	Capture(src scan.Source) (bool, error)
}

// Options configures an Optimizer.
type Options struct {
	Encoder *codec.Encoder
	HEIC    HEICConverter
	Backups BackupCapturer
	// MinSize is the in-place skip threshold in bytes.
	MinSize    int64
	TempSuffix string
	Logger     *slog.Logger
}

// Optimizer processes one image at a time.
type Optimizer struct {
	encoder    *codec.Encoder
	heic       HEICConverter
	backups    BackupCapturer
	minSize    int64
	tempSuffix string
	logger     *slog.Logger
}

// New constructs an Optimizer. A nil Encoder uses codec defaults without
// external tools.
func New(opts Options) *Optimizer {
	enc := opts.Encoder
	if enc == nil {
		enc = codec.NewEncoder(codec.DefaultSettings(), codec.Tools{}, opts.Logger)
	}
	suffix := opts.TempSuffix
	if suffix == "" {
		suffix = ".tmp"
	}
	return &Optimizer{
		encoder:    enc,
		heic:       opts.HEIC,
		backups:    opts.Backups,
		minSize:    opts.MinSize,
		tempSuffix: suffix,
		logger:     logging.NewComponentLogger(opts.Logger, "optimizer"),
	}
}

// TempSuffix returns the suffix used for uncommitted outputs.
func (o *Optimizer) TempSuffix() string {
	return o.tempSuffix
}

// InPlace optimizes src where it lives. HEIC sources are replaced by a sibling
// .jpg and removed once that JPEG is committed.
func (o *Optimizer) InPlace(ctx context.Context, src scan.Source) Result {
	logger := o.fileLogger(ctx, src)
	if err := ctx.Err(); err != nil {
		return o.fail(logger, src, "", err)
	}

	if src.Size < o.minSize {
		logger.Info("already optimized, skipping",
			logging.String(logging.FieldOutcome, string(OutcomeSkippedSmall)),
			logging.Int64("size", src.Size),
			logging.String(logging.FieldEventType, "file_skipped"),
		)
		return skippedResult(src, OutcomeSkippedSmall)
	}

	output := src.AbsPath
	if src.Format == codec.FormatHEIC {
		output = codec.OutputPath(src.AbsPath)
		if fileutil.Exists(output) {
			err := failures.Wrap(failures.ErrConflict, "optimize", "in place",
				fmt.Sprintf("%s already exists", filepath.Base(output)), nil)
			logging.WarnWithContext(logger, "output already exists", "file_conflict",
				logging.String(logging.FieldOutcome, string(OutcomeConflict)),
				logging.String("output", output),
				logging.String(logging.FieldErrorHint, failures.Hint(err)),
			)
			result := skippedResult(src, OutcomeConflict)
			result.Output = output
			result.Err = err
			return result
		}
	}

	if o.backups != nil {
		if _, err := o.backups.Capture(src); err != nil {
			return o.fail(logger, src, "", err)
		}
	}

	data, width, err := o.render(ctx, src)
	if err != nil {
		return o.fail(logger, src, "", err)
	}

	if int64(len(data)) >= src.Size {
		logger.Info("no improvement, keeping original",
			logging.String(logging.FieldOutcome, string(OutcomeNoImprovement)),
			logging.Int64(logging.FieldBytesBefore, src.Size),
			logging.Int64("candidate_bytes", int64(len(data))),
			logging.String(logging.FieldEventType, "file_skipped"),
		)
		return skippedResult(src, OutcomeNoImprovement)
	}

	tempPath := output + o.tempSuffix
	if err := o.commit(tempPath, output, data); err != nil {
		return o.fail(logger, src, tempPath, err)
	}
	if output != src.AbsPath {
		if err := fileutil.RemoveIfExists(src.AbsPath); err != nil {
			logging.WarnWithContext(logger, "converted original not removed", "heic_cleanup_failed",
				logging.String("output", output),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the .heic file by hand"),
				logging.String(logging.FieldImpact, "both the HEIC original and the JPEG remain"),
			)
		}
	}

	result := Result{
		Source:      src,
		Output:      output,
		Outcome:     OutcomeOptimized,
		BytesBefore: src.Size,
		BytesAfter:  int64(len(data)),
		BytesSaved:  src.Size - int64(len(data)),
		WasModified: true,
		Width:       width,
	}
	o.logResult(logger, result)
	return result
}

// Copy writes an optimized derivative of src under destRoot, mirroring its
// relative path. The source is never modified.
func (o *Optimizer) Copy(ctx context.Context, src scan.Source, destRoot string) Result {
	logger := o.fileLogger(ctx, src)
	if err := ctx.Err(); err != nil {
		return o.fail(logger, src, "", err)
	}

	output := DestinationPath(src, destRoot)
	if IsDestinationFresh(src, output) {
		logger.Debug("destination up to date",
			logging.String(logging.FieldOutcome, string(OutcomeSkippedFresh)),
			logging.String("output", output),
			logging.String(logging.FieldEventType, "file_skipped"),
		)
		result := skippedResult(src, OutcomeSkippedFresh)
		result.Output = output
		return result
	}

	data, width, err := o.render(ctx, src)
	if err != nil {
		return o.fail(logger, src, "", err)
	}

	tempPath := output + o.tempSuffix
	if err := o.commit(tempPath, output, data); err != nil {
		return o.fail(logger, src, tempPath, err)
	}

	result := Result{
		Source:      src,
		Output:      output,
		Outcome:     OutcomeWritten,
		BytesBefore: src.Size,
		BytesAfter:  int64(len(data)),
		BytesSaved:  src.Size - int64(len(data)),
		WasModified: true,
		Width:       width,
	}
	o.logResult(logger, result)
	return result
}

// CopyConflict reports src as a conflict because output is already produced
// from owner in the same pass. Neither file is touched.
func (o *Optimizer) CopyConflict(ctx context.Context, src scan.Source, output, owner string) Result {
	logger := o.fileLogger(ctx, src)
	err := failures.Wrap(failures.ErrConflict, "optimize", "copy",
		fmt.Sprintf("%s is already produced from %s", filepath.Base(output), owner), nil)
	logging.WarnWithContext(logger, "output claimed by another upload", "file_conflict",
		logging.String(logging.FieldOutcome, string(OutcomeConflict)),
		logging.String("output", output),
		logging.String("claimed_by", owner),
		logging.String(logging.FieldErrorHint, "rename one of the uploads so each maps to its own web file"),
		logging.String(logging.FieldImpact, "this upload is not published"),
	)
	result := skippedResult(src, OutcomeConflict)
	result.Output = output
	result.Err = err
	return result
}

// DestinationPath mirrors src's relative path under destRoot. HEIC sources map
// to .jpg.
func DestinationPath(src scan.Source, destRoot string) string {
	return codec.OutputPath(filepath.Join(destRoot, filepath.FromSlash(src.RelPath)))
}

// IsDestinationFresh reports whether dest exists and was modified strictly
// after src.
func IsDestinationFresh(src scan.Source, dest string) bool {
	info, err := os.Stat(dest)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.ModTime().After(src.ModTime)
}

// render decodes, bounds and re-encodes src, returning the bytes and the
// resulting width.
func (o *Optimizer) render(ctx context.Context, src scan.Source) ([]byte, int, error) {
	img, err := o.decode(ctx, src)
	if err != nil {
		return nil, 0, err
	}
	img, _ = codec.FitWidth(img, o.encoder.Settings().MaxWidth)
	data, err := o.encoder.Encode(ctx, img, src.Format)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, failures.Wrap(failures.ErrEncode, "optimize", "encode", src.RelPath, err)
	}
	return data, img.Bounds().Dx(), nil
}

func (o *Optimizer) decode(ctx context.Context, src scan.Source) (image.Image, error) {
	if src.Format == codec.FormatHEIC {
		if o.heic == nil {
			return nil, failures.Wrap(failures.ErrConfiguration, "optimize", "decode", "HEIC conversion disabled", nil)
		}
		jpeg, err := o.heic.ToJPEG(ctx, src.AbsPath)
		if err != nil {
			return nil, err
		}
		img, err := codec.Decode(jpeg)
		if err != nil {
			return nil, failures.Wrap(failures.ErrDecode, "optimize", "decode", src.RelPath, err)
		}
		return img, nil
	}
	img, err := codec.DecodeFile(src.AbsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, failures.Wrap(failures.ErrIO, "optimize", "read", src.RelPath, err)
		}
		return nil, failures.Wrap(failures.ErrDecode, "optimize", "decode", src.RelPath, err)
	}
	return img, nil
}

// commit writes data to tempPath and renames it over output.
func (o *Optimizer) commit(tempPath, output string, data []byte) error {
	if err := fileutil.WriteFileSync(tempPath, data, 0o644); err != nil {
		return failures.Wrap(failures.ErrIO, "optimize", "write temp", tempPath, err)
	}
	if err := os.Rename(tempPath, output); err != nil {
		return failures.Wrap(failures.ErrIO, "optimize", "commit", output, err)
	}
	return nil
}

func (o *Optimizer) fail(logger *slog.Logger, src scan.Source, tempPath string, err error) Result {
	if tempPath != "" {
		_ = fileutil.RemoveIfExists(tempPath)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Result{Source: src, Outcome: OutcomeFailed, BytesBefore: src.Size, BytesAfter: src.Size, Err: err}
	}
	logging.WarnWithContext(logger, "failed to process", "file_failed",
		logging.String(logging.FieldOutcome, string(OutcomeFailed)),
		logging.String(logging.FieldErrorKind, failures.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, failures.Hint(err)),
	)
	return Result{Source: src, Outcome: OutcomeFailed, BytesBefore: src.Size, BytesAfter: src.Size, Err: err}
}

func (o *Optimizer) fileLogger(ctx context.Context, src scan.Source) *slog.Logger {
	return logging.WithContext(ctx, o.logger).With(
		logging.String(logging.FieldCategory, string(src.Category)),
		logging.String(logging.FieldPath, src.RelPath),
	)
}

func (o *Optimizer) logResult(logger *slog.Logger, result Result) {
	logger.Info(string(result.Outcome),
		logging.String(logging.FieldOutcome, string(result.Outcome)),
		logging.Int64(logging.FieldBytesBefore, result.BytesBefore),
		logging.Int64(logging.FieldBytesAfter, result.BytesAfter),
		logging.Int64(logging.FieldBytesSaved, result.BytesSaved),
		logging.Int("width", result.Width),
		logging.String("output", result.Output),
		logging.String(logging.FieldEventType, "file_"+string(result.Outcome)),
	)
}
