package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/logging"
)

var (
	// ErrImportNotFound is returned for an upload id with no stored file.
	ErrImportNotFound = errors.New("import not found")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// DefaultRunTimeout bounds a single review or save.
var DefaultRunTimeout = 10 * time.Minute

// ServiceConfig configures a Service. Zero values select defaults.
type ServiceConfig struct {
	UploadDir     string
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	Timeout       time.Duration
}

// Service runs imports of stored uploads. Uploads live on disk as
// <UploadDir>/<uuid><ext> so staged saves of one file may span requests
// and restarts.
type Service struct {
	importer    *Importer
	limiter     *RunLimiter
	uploadDir   string
	maxFileSize int64
	timeout     time.Duration
}

// NewService creates a Service and its upload directory.
func NewService(catalog Catalog, lookups LookupSource, perms Permissions, cfg ServiceConfig) (*Service, error) {
	dir := cfg.UploadDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "catalog-imports")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	return &Service{
		importer:    NewImporter(catalog, lookups, perms),
		limiter:     NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		uploadDir:   dir,
		maxFileSize: cfg.MaxFileSize,
		timeout:     timeout,
	}, nil
}

// NewPostgresService creates a Service whose collaborators share pool.
func NewPostgresService(pool *pgxpool.Pool, cfg ServiceConfig) (*Service, error) {
	catalog := NewPostgresCatalog(pool)
	return NewService(catalog, catalog, NewPostgresPermissions(pool), cfg)
}

// Upload describes a stored file.
type Upload struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

// StoreUpload saves an uploaded spreadsheet and returns its id.
func (s *Service) StoreUpload(ctx context.Context, name string, r io.Reader) (Upload, error) {
	if !SupportedExtension(name) {
		return Upload{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(name))
	}

	id := uuid.NewString()
	path := filepath.Join(s.uploadDir, id+strings.ToLower(filepath.Ext(name)))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Upload{}, fmt.Errorf("store upload: %w", err)
	}

	src := r
	if s.maxFileSize > 0 {
		src = io.LimitReader(r, s.maxFileSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxFileSize > 0 && n > s.maxFileSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrFileTooLarge) {
			return Upload{}, err
		}
		return Upload{}, fmt.Errorf("store upload: %w", err)
	}

	logging.FromContext(ctx).Info("upload stored", "upload_id", id, "file", name, "bytes", n)
	return Upload{ID: id, FileName: name, Size: n}, nil
}

// uploadPath resolves an upload id to its stored file.
func (s *Service) uploadPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrImportNotFound
	}
	matches, err := filepath.Glob(filepath.Join(s.uploadDir, id+".*"))
	if err != nil || len(matches) == 0 {
		return "", ErrImportNotFound
	}
	return matches[0], nil
}

// withRun opens the stored upload and calls fn with a slot held and the
// service timeout applied.
func (s *Service) withRun(ctx context.Context, id string, user User, settings *Settings, fn func(context.Context, *Run) error) error {
	path, err := s.uploadPath(id)
	if err != nil {
		return err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrImportNotFound
	}
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	run := s.importer.Open(ctx, Source{Name: filepath.Base(path), Reader: f}, user, settings)
	f.Close()

	return fn(ctx, run)
}

// ReviewResult is the review of a stored upload.
type ReviewResult struct {
	UploadID string             `json:"upload_id"`
	Lines    map[int]LineReview `json:"lines"`
	Summary  *ReviewSummary     `json:"summary,omitempty"`
	Errors   []string           `json:"errors"`
}

// Review validates the upload without saving. When settings name a line
// range only those lines are validated and no summary is built.
func (s *Service) Review(ctx context.Context, id string, user User, settings *Settings) (ReviewResult, error) {
	var res ReviewResult
	err := s.withRun(ctx, id, user, settings, func(ctx context.Context, run *Run) error {
		res.UploadID = id
		if settings != nil && (settings.Start > 0 || settings.End > 0) {
			res.Lines = run.ReviewRange(ctx, settings.Start, settings.End)
		} else {
			res.Lines = run.Review(ctx)
			summary := run.ReviewSummary(ctx)
			res.Summary = &summary
		}
		res.Errors = run.Errors()
		if res.Errors == nil {
			res.Errors = []string{}
		}
		return nil
	})
	return res, err
}

// Save runs a full import of the upload, including the absent-item reset.
func (s *Service) Save(ctx context.Context, id string, user User, settings *Settings) (SaveResults, error) {
	var res SaveResults
	err := s.withRun(ctx, id, user, settings, func(ctx context.Context, run *Run) error {
		run.SaveEntries(ctx)
		res = run.SaveResults()
		return nil
	})
	return res, err
}

// SaveStage saves lines start..end. touched carries the ids returned by
// earlier stages; the result holds the extended set.
func (s *Service) SaveStage(ctx context.Context, id string, user User, settings *Settings, start, end int, touched TouchedIDs) (SaveResults, error) {
	var res SaveResults
	err := s.withRun(ctx, id, user, settings, func(ctx context.Context, run *Run) error {
		run.SaveEntriesInRange(ctx, start, end, touched)
		res = run.SaveResults()
		return nil
	})
	return res, err
}

// ResetAbsent is the last step of a staged import.
func (s *Service) ResetAbsent(ctx context.Context, id string, user User, settings *Settings, touched TouchedIDs) (SaveResults, error) {
	var res SaveResults
	err := s.withRun(ctx, id, user, settings, func(ctx context.Context, run *Run) error {
		run.ResetAbsent(ctx, touched)
		res = run.SaveResults()
		return nil
	})
	return res, err
}

// SaveInStages saves the upload in ranges of stageSize lines, each in its own
// run as separate SaveStage requests would, then resets absent items once.
// A file that fits in one stage is saved with Save.
func (s *Service) SaveInStages(ctx context.Context, id string, user User, settings *Settings, stageSize int) (SaveResults, error) {
	var lines []int
	err := s.withRun(ctx, id, user, settings, func(ctx context.Context, run *Run) error {
		for _, e := range run.Entries() {
			lines = append(lines, e.LineNumber)
		}
		return nil
	})
	if err != nil {
		return SaveResults{}, err
	}

	ranges := StageRanges(lines, stageSize)
	if len(ranges) <= 1 {
		return s.Save(ctx, id, user, settings)
	}

	var total SaveResults
	var touched TouchedIDs
	for _, rg := range ranges {
		res, err := s.SaveStage(ctx, id, user, settings, rg[0], rg[1], touched)
		if err != nil {
			return total, err
		}
		touched = res.Touched
		total.add(res)
	}

	reset, err := s.ResetAbsent(ctx, id, user, settings, touched)
	if err != nil {
		return total, err
	}
	total.add(reset)
	total.UpdatedIDs = reset.UpdatedIDs
	total.Touched = reset.Touched
	total.settle()
	return total, nil
}

// StageRanges splits ascending line numbers into inclusive ranges of at most
// size lines. A size of zero or less yields one range.
func StageRanges(lines []int, size int) [][2]int {
	if len(lines) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(lines)
	}
	var out [][2]int
	for i := 0; i < len(lines); i += size {
		j := min(i+size, len(lines)) - 1
		out = append(out, [2]int{lines[i], lines[j]})
	}
	return out
}

// ExportReview writes the review of the upload as XLSX to w.
func (s *Service) ExportReview(ctx context.Context, id string, user User, settings *Settings, w io.Writer) error {
	return s.withRun(ctx, id, user, settings, func(ctx context.Context, run *Run) error {
		return ExportReviewXLSX(ctx, run, w)
	})
}

// Discard deletes a stored upload.
func (s *Service) Discard(ctx context.Context, id string) error {
	path, err := s.uploadPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrImportNotFound
		}
		return fmt.Errorf("discard upload: %w", err)
	}
	logging.FromContext(ctx).Info("upload discarded", "upload_id", id)
	return nil
}

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// Drain waits for in-flight runs to finish.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
