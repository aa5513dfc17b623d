package entity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offsync/internal/model"
)

func TestReadData(t *testing.T) {
	file := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"id":"u2"}`), 0o600))

	tests := []struct {
		name    string
		data    string
		file    string
		stdin   string
		want    model.Entity
		wantErr bool
	}{
		{name: "flag", data: `{"name":"Ann"}`, want: model.Entity{"name": "Ann"}},
		{name: "file", file: file, want: model.Entity{"id": "u2"}},
		{name: "stdin", file: "-", stdin: `{"n":1}`, want: model.Entity{"n": 1.0}},
		{name: "nothing", want: model.Entity{}},
		{name: "null", data: `null`, want: model.Entity{}},
		{name: "array", data: `[1]`, wantErr: true},
		{name: "missing file", file: filepath.Join(t.TempDir(), "nope"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			putData, putFile = tt.data, tt.file
			t.Cleanup(func() { putData, putFile = "", "" })

			got, err := readData(strings.NewReader(tt.stdin))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
