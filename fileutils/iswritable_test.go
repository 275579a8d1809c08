package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWriteable(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "config.yml")
	assert.True(t, IsWriteable(missing))

	require.NoError(t, os.WriteFile(missing, []byte("a: 1\n"), 0644))
	assert.True(t, IsWriteable(missing))

	readOnly := filepath.Join(dir, "ro.yml")
	require.NoError(t, os.WriteFile(readOnly, nil, 0444))
	assert.False(t, IsWriteable(readOnly))

	assert.False(t, IsWriteable(dir))
	assert.False(t, IsWriteable(filepath.Join(dir, "nope", "config.yml")))
	assert.False(t, IsWriteable(""))
}
