package dhparam

import (
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesPEMDHParameters(t *testing.T) {
	out, err := Generate(256)
	require.NoError(t, err)

	block, _ := pem.Decode(out)
	require.NotNil(t, block)
	assert.Equal(t, "DH PARAMETERS", block.Type)
	assert.NotEmpty(t, block.Bytes)
}

func TestLoadReadsGeneratedParameters(t *testing.T) {
	out, err := Generate(256)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dhparam.pem")
	require.NoError(t, os.WriteFile(path, out, 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, out, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
