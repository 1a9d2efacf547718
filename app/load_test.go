package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootElement(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.xml")
	empty := filepath.Join(dir, "empty.xml")

	require.NoError(t, os.WriteFile(other, []byte(`<?xml version="1.0"?><!-- plugins --><plugins/>`), 0o600))
	require.NoError(t, os.WriteFile(empty, []byte(`<?xml version="1.0"?>`), 0o600))

	testCases := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "navigation menus", path: "../etc/registry/navigationMenus.xml", want: "navigationMenus"},
		{name: "task registry", path: "../etc/registry/scheduledTasks.xml", want: "scheduled_tasks"},
		{name: "other document", path: other, want: "plugins"},
		{name: "no element", path: empty, wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "missing.xml"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rootElement(tc.path)
			if tc.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
