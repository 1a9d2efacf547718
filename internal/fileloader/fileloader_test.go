package fileloader_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/fileloader"
)

// processor accepts files whose content starts with "ok" and fails on "fail".
type processor struct {
	seen []string
}

func (p *processor) ProcessFile(_ context.Context, path string) (bool, error) {
	p.seen = append(p.seen, filepath.Base(path))

	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	switch {
	case bytes.HasPrefix(b, []byte("ok")):
		return true, nil
	case bytes.HasPrefix(b, []byte("fail")):
		return false, errors.New("database gone")
	default:
		return false, nil
	}
}

func stage(t *testing.T, l *fileloader.Loader, files map[string]string) {
	t.Helper()

	require.NoError(t, l.Prepare())

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(l.Dir(fileloader.StageDir), name), []byte(content), 0o600))
	}
}

func list(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestLoader_Execute(t *testing.T) {
	testCases := []struct {
		name        string
		compress    bool
		files       map[string]string
		wantArchive []string
		wantReject  []string
		wantErr     bool
		wantLog     string
	}{
		{
			name:    "nothing staged",
			files:   map[string]string{},
			wantLog: "There are no files to process.",
		},
		{
			name:        "archive and reject",
			files:       map[string]string{"a.log": "ok", "b.log": "garbage"},
			wantArchive: []string{"a.log"},
			wantReject:  []string{"b.log"},
			wantLog:     "File b.log was rejected.",
		},
		{
			name:        "compressed archive",
			compress:    true,
			files:       map[string]string{"a.log": "ok"},
			wantArchive: []string{"a.log.gz"},
		},
		{
			name:        "processing error",
			files:       map[string]string{"a.log": "ok", "b.log": "fail"},
			wantArchive: []string{"a.log"},
			wantReject:  []string{"b.log"},
			wantErr:     true,
			wantLog:     "database gone",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &processor{}
			l := fileloader.New("Loader", t.TempDir(), p, tc.compress)
			stage(t, l, tc.files)

			var buf bytes.Buffer

			err := l.Execute(zerolog.New(&buf).WithContext(context.Background()))
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Len(t, p.seen, len(tc.files))
			assert.Empty(t, list(t, l.Dir(fileloader.StageDir)))
			assert.Empty(t, list(t, l.Dir(fileloader.ProcessingDir)))
			assert.ElementsMatch(t, append([]string{}, tc.wantArchive...), list(t, l.Dir(fileloader.ArchiveDir)))
			assert.ElementsMatch(t, append([]string{}, tc.wantReject...), list(t, l.Dir(fileloader.RejectDir)))
			assert.Contains(t, buf.String(), tc.wantLog)
		})
	}
}

func TestLoader_Claim(t *testing.T) {
	l := fileloader.New("Loader", t.TempDir(), &processor{}, false)
	stage(t, l, map[string]string{"2.log": "ok", "1.log": "ok"})

	path, err := l.Claim()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Dir(fileloader.ProcessingDir), "1.log"), path)

	// a second claim never returns a file already claimed
	path, err = l.Claim()
	require.NoError(t, err)
	assert.Equal(t, "2.log", filepath.Base(path))

	_, err = l.Claim()
	require.ErrorIs(t, err, fileloader.ErrNoFiles)
}

func TestOpen_Gzip(t *testing.T) {
	l := fileloader.New("Loader", t.TempDir(), &processor{}, true)
	stage(t, l, map[string]string{"a.log": "ok line"})
	require.NoError(t, l.Execute(context.Background()))

	rc, err := fileloader.Open(filepath.Join(l.Dir(fileloader.ArchiveDir), "a.log.gz"))
	require.NoError(t, err)

	defer func() {
		_ = rc.Close()
	}()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ok line", strings.TrimSpace(string(b)))
}
