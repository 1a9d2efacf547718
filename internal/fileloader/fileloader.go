// Package fileloader processes files dropped into a stage directory. Each file is
// claimed by moving it to the processing directory, handed to a Processor and then
// archived or rejected.
package fileloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// Directories below the loader base directory.
const (
	StageDir      = "stage"
	ProcessingDir = "processing"
	ArchiveDir    = "archive"
	RejectDir     = "reject"
)

// ErrNoFiles is returned by Claim when the stage directory is empty.
var ErrNoFiles = errors.New("no files to process")

// Processor handles one claimed file. A false result without error rejects the file;
// an error rejects it and fails the run.
type Processor interface {
	ProcessFile(ctx context.Context, path string) (bool, error)
}

// Loader moves files through the loader directories.
type Loader struct {
	name      string
	base      string
	processor Processor
	compress  bool
}

// New returns a loader working below base. With compress set archived files are
// gzip compressed.
func New(name, base string, p Processor, compress bool) *Loader {
	return &Loader{name: name, base: base, processor: p, compress: compress}
}

// Name implements task.ScheduledTask.
func (l *Loader) Name() string {
	return l.name
}

// Dir returns the path of one of the loader directories.
func (l *Loader) Dir(name string) string {
	return filepath.Join(l.base, name)
}

// Prepare creates the loader directories.
func (l *Loader) Prepare() error {
	for _, d := range []string{StageDir, ProcessingDir, ArchiveDir, RejectDir} {
		if err := os.MkdirAll(l.Dir(d), 0o750); err != nil {
			return fmt.Errorf("create %s directory: %w", d, err)
		}
	}

	return nil
}

// Staged returns the names of the files waiting in the stage directory.
func (l *Loader) Staged() ([]string, error) {
	entries, err := os.ReadDir(l.Dir(StageDir))
	if err != nil {
		return nil, err
	}

	var names []string

	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	slices.Sort(names)

	return names, nil
}

// Claim moves the first staged file into the processing directory and returns its new
// path. Files taken by a concurrent run are skipped.
func (l *Loader) Claim() (string, error) {
	names, err := l.Staged()
	if err != nil {
		return "", err
	}

	for _, name := range names {
		target := filepath.Join(l.Dir(ProcessingDir), name)

		err := os.Rename(filepath.Join(l.Dir(StageDir), name), target)
		if err == nil {
			return target, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("claim %s: %w", name, err)
		}
	}

	return "", ErrNoFiles
}

// Execute implements task.ScheduledTask: it processes staged files until none is left.
func (l *Loader) Execute(ctx context.Context) error {
	runLog := zerolog.Ctx(ctx)

	if err := l.Prepare(); err != nil {
		return err
	}

	var errs []error

	processed := 0

	for ctx.Err() == nil {
		path, err := l.Claim()
		if errors.Is(err, ErrNoFiles) {
			break
		}

		if err != nil {
			return errors.Join(append(errs, err)...)
		}

		processed++
		name := filepath.Base(path)

		ok, err := l.processor.ProcessFile(ctx, path)

		switch {
		case err != nil:
			runLog.Error().Msgf("File %s could not be processed and was rejected: %s", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))

			err = l.reject(path)
		case !ok:
			runLog.Warn().Msgf("File %s was rejected.", name)

			err = l.reject(path)
		default:
			runLog.Info().Msgf("File %s was processed and archived.", name)

			err = l.archive(path)
		}

		if err != nil {
			return errors.Join(append(errs, err)...)
		}
	}

	if processed == 0 {
		runLog.Info().Msg("There are no files to process.")
	}

	return errors.Join(errs...)
}

func (l *Loader) reject(path string) error {
	return os.Rename(path, filepath.Join(l.Dir(RejectDir), filepath.Base(path)))
}

func (l *Loader) archive(path string) error {
	target := filepath.Join(l.Dir(ArchiveDir), filepath.Base(path))
	if !l.compress {
		return os.Rename(path, target)
	}

	if err := compressFile(path, target+".gz"); err != nil {
		return err
	}

	return os.Remove(path)
}

func compressFile(src, dst string) (err error) {
	in, err := os.Open(src) //nolint:gosec
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst) //nolint:gosec
	if err != nil {
		return err
	}

	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)

	if _, err = io.Copy(zw, in); err != nil {
		return fmt.Errorf("compress %s: %w", src, err)
	}

	return zw.Close()
}

// Open opens a loader file, transparently decompressing gzip files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	if filepath.Ext(path) != ".gz" {
		return f, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}
