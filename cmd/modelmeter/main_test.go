package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))

	tests := []struct {
		name    string
		text    string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{"text flag", "from flag", "", "ignored", "from flag", false},
		{"file flag", "", path, "ignored", "from file", false},
		{"stdin", "", "", "from stdin", "from stdin", false},
		{"both flags", "a", path, "", "", true},
		{"missing file", "", filepath.Join(t.TempDir(), "nope"), "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readInput(tt.text, tt.file, strings.NewReader(tt.stdin))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
