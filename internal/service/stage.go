package service

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/devmanager/internal/adapter"
	"github.com/Ning0612/devmanager/internal/adapter/local"
	"github.com/Ning0612/devmanager/internal/core/diff"
	"github.com/Ning0612/devmanager/internal/core/planner"
	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/lock"
	"github.com/Ning0612/devmanager/internal/logger"
	"github.com/Ning0612/devmanager/internal/manifest"
	"github.com/Ning0612/devmanager/internal/progress"
	"github.com/Ning0612/devmanager/internal/state"
)

// StageOptions controls one staging run
type StageOptions struct {
	// Force recopies every file regardless of the mtime cache
	Force bool
}

// StageService copies the files a manifest lists into its destination
// directory and records each run
type StageService struct {
	history  *state.History
	reporter progress.Reporter
	now      func() time.Time
}

// NewStageService creates a stage service. history may be nil, in which
// case runs are not recorded.
func NewStageService(history *state.History) *StageService {
	return &StageService{
		history: history,
		now:     time.Now,
	}
}

// SetProgressReporter sets the progress reporter for staging runs
func (s *StageService) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

func (s *StageService) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

// Run performs one staging run for the manifest at manifestPath. The
// returned error is non-nil only when the run aborted; per-file failures
// are reported in the result and leave the run "partial".
func (s *StageService) Run(ctx context.Context, manifestPath string, opts StageOptions) (*domain.StageResult, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	start := s.now()
	log := logger.With("manifest", abs)

	result, err := s.run(ctx, abs, opts)

	status := domain.StatusFailed
	errText := ""
	if err != nil {
		errText = err.Error()
		log.Error("staging failed", "error", err)
	} else {
		status = result.Status()
		if result.FilesFailed > 0 {
			errText = fmt.Sprintf("%d file(s) failed", result.FilesFailed)
		}
		log.Info("staging completed",
			"status", status,
			"copied", result.FilesCopied,
			"skipped", result.FilesSkipped,
			"failed", result.FilesFailed,
			"bytes", result.BytesWritten,
		)
	}

	s.record(ctx, state.StageRecord{
		Manifest:  abs,
		StartTime: start,
		EndTime:   s.now(),
		Status:    status,
		Error:     errText,
	}, result)

	return result, err
}

func (s *StageService) record(ctx context.Context, rec state.StageRecord, result *domain.StageResult) {
	if s.history == nil {
		return
	}
	if result != nil {
		rec.FilesCopied = result.FilesCopied
		rec.FilesSkipped = result.FilesSkipped
		rec.FilesFailed = result.FilesFailed
		rec.BytesWritten = result.BytesWritten
	}
	// A cancelled run is still worth recording
	if err := s.history.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.Get().Warn("failed to record staging run", "error", err)
	}
}

func (s *StageService) run(ctx context.Context, manifestPath string, opts StageOptions) (*domain.StageResult, error) {
	fileLock := lock.New(manifestPath)
	if err := fileLock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := fileLock.Release(); err != nil {
			logger.Get().Error("failed to release manifest lock", "manifest", manifestPath, "error", err)
		}
	}()

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	source, err := local.New(m.SourceRoot())
	if err != nil {
		return nil, fmt.Errorf("source directory %s: %w", m.SourceRoot(), err)
	}
	defer source.Close()

	if err := os.MkdirAll(m.DestRoot(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	dest, err := local.New(m.DestRoot())
	if err != nil {
		return nil, fmt.Errorf("destination directory %s: %w", m.DestRoot(), err)
	}
	defer dest.Close()

	plan, err := planner.NewDefaultPlanner(opts.Force).Plan(ctx, m, source)
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("staging plan created",
		"manifest", manifestPath,
		"dirs", plan.Stats.DirsToCreate,
		"copy", plan.Stats.FilesToCopy,
		"skip", plan.Stats.FilesToSkip,
		"missing", plan.Stats.FilesMissing,
	)

	result, err := s.execute(ctx, plan, m, source, dest)
	if err != nil {
		return result, err
	}

	m.MarkRun(diff.Seconds(s.now()))
	if err := m.Save(); err != nil {
		return result, err
	}

	return result, nil
}

// execute applies the plan in order. Directory failures abort; file
// failures are logged and counted.
func (s *StageService) execute(ctx context.Context, plan *domain.StagePlan, m *manifest.Manifest, source, dest adapter.Adapter) (*domain.StageResult, error) {
	reporter := s.getReporter()
	reporter.SetTotal(plan.Stats.FilesToCopy, plan.Stats.BytesToCopy)
	defer reporter.Finish()

	result := &domain.StageResult{}

	for _, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch action.Type {
		case domain.ActionMkdir:
			if err := dest.Mkdir(ctx, action.Dest); err != nil {
				return result, fmt.Errorf("mkdir %s: %w", action.Dest, err)
			}

		case domain.ActionSkip:
			result.FilesSkipped++
			logger.Get().Debug("skipped", "src", action.Source, "reason", action.Reason)

		case domain.ActionFail:
			s.fail(result, action, errors.New(action.Reason))

		case domain.ActionCopy:
			reporter.Start(action.Source, action.SourceInfo.Size)
			written, err := copyFile(ctx, source, dest, action, reporter)
			if err != nil {
				reporter.Error(err)
				s.fail(result, action, err)
				continue
			}
			reporter.Complete()

			m.Record(action.Source, diff.Seconds(action.SourceInfo.ModTime))
			result.FilesCopied++
			result.BytesWritten += written
			logger.Get().Info("copied", "src", action.Source, "dst", action.Dest, "bytes", written, "reason", action.Reason)

		default:
			return result, fmt.Errorf("unknown action type: %s", action.Type)
		}
	}

	return result, nil
}

func (s *StageService) fail(result *domain.StageResult, action domain.StageAction, err error) {
	err = fmt.Errorf("%s -> %s: %w", action.Source, action.Dest, err)
	result.FilesFailed++
	result.Errors = append(result.Errors, err)
	logger.Get().Error("copy failed", "src", action.Source, "dst", action.Dest, "error", err)
}

// copyFile streams one source into dest, gzipping at best compression
// when the action asks for it. It returns the bytes written to dest.
func copyFile(ctx context.Context, source, dest adapter.Adapter, action domain.StageAction, reporter progress.Reporter) (int64, error) {
	rc, err := source.Read(ctx, action.Source)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var body io.Reader = progress.NewProgressReader(rc, reporter)
	if action.Compress {
		gz := gzipReader(body)
		defer gz.Close()
		body = gz
	}

	counter := &countingReader{r: body}
	if err := dest.Write(ctx, action.Dest, counter); err != nil {
		return 0, err
	}
	return counter.n, nil
}

// gzipReader compresses r on a goroutine. Closing the returned reader
// unblocks the goroutine if the consumer stops early.
func gzipReader(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		gz, err := gzip.NewWriterLevel(pw, gzip.BestCompression)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		_, err = io.Copy(gz, r)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()
	return pr
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
