package motd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellkeep/config"
	"shellkeep/internal/protocol"
)

func writeMotd(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motd")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEnabled(t *testing.T) {
	var nilMessenger *Messenger
	assert.False(t, nilMessenger.Enabled())
	assert.False(t, New(config.MotdConfig{Mode: config.MotdNever}).Enabled())
	assert.True(t, New(config.MotdConfig{Mode: config.MotdDump, Path: "/x"}).Enabled())
}

func TestLoad_TranslatesNewlines(t *testing.T) {
	m := New(config.MotdConfig{Mode: config.MotdDump, Path: writeMotd(t, "welcome\nbe nice\n")})

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "welcome\n\rbe nice\n\r", string(got))
}

func TestDump_WritesChunkFrame(t *testing.T) {
	m := New(config.MotdConfig{Mode: config.MotdDump, Path: writeMotd(t, "hi\n")})

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))

	var chunk protocol.Chunk
	require.NoError(t, protocol.ReadFrame(&buf, &chunk))
	assert.Equal(t, protocol.ChunkData, chunk.Kind)
	assert.Equal(t, "hi\n\r", string(chunk.Buf))
	assert.Zero(t, buf.Len())
}

func TestDump_MissingFile(t *testing.T) {
	m := New(config.MotdConfig{Mode: config.MotdDump, Path: filepath.Join(t.TempDir(), "absent")})

	var buf bytes.Buffer
	err := m.Dump(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, buf.Len())
}
