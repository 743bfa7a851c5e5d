package sanitize

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "absolute file",
			input: filepath.Join(dir, "export.json"),
			want:  filepath.Join(dir, "export.json"),
		},
		{
			name:  "cleaned",
			input: filepath.Join(dir, "sub", "..", "export.json"),
			want:  filepath.Join(dir, "export.json"),
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmptyPath,
		},
		{
			name:    "blank",
			input:   "   ",
			wantErr: ErrEmptyPath,
		},
		{
			name:    "nul byte",
			input:   "bad\x00.json",
			wantErr: ErrInvalidPath,
		},
		{
			name:    "root",
			input:   "/",
			wantErr: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePath_RelativeBecomesAbsolute(t *testing.T) {
	got, err := ValidatePath("exports/session.json")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "session.json", filepath.Base(got))
}

func TestLockPath(t *testing.T) {
	assert.Equal(t, "/tmp/out.lock", LockPath("/tmp/out.json"))
	assert.Equal(t, "/tmp/out.lock", LockPath("/tmp/out"))
	assert.Equal(t, "/data/p_session.lock", LockPath("/data/p_session.json"))
	assert.Equal(t, "/tmp/out.lock.lock", LockPath("/tmp/out.lock"))
	assert.NotEqual(t, "/tmp/out.lock", LockPath("/tmp/out.lock"))
}
