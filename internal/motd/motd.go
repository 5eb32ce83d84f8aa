// Package motd delivers the message of the day to a freshly created
// session.
package motd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"shellkeep/config"
	"shellkeep/internal/protocol"
)

// Messenger sends the configured message of the day.
type Messenger struct {
	Mode config.MotdMode
	Path string
}

// New builds a Messenger from the motd section of cfg.
func New(cfg config.MotdConfig) *Messenger {
	return &Messenger{Mode: cfg.Mode, Path: cfg.Path}
}

// Enabled reports whether new sessions receive a message.
func (m *Messenger) Enabled() bool {
	return m != nil && m.Mode == config.MotdDump
}

// Load reads the message file with every "\n" expanded to "\n\r",
// since the client terminal is in raw mode.
func (m *Messenger) Load() ([]byte, error) {
	raw, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, fmt.Errorf("read motd %s: %w", m.Path, err)
	}
	return bytes.ReplaceAll(raw, []byte("\n"), []byte("\n\r")), nil
}

// Chunk wraps the loaded message in a data frame.
func (m *Messenger) Chunk() (*protocol.Chunk, error) {
	buf, err := m.Load()
	if err != nil {
		return nil, err
	}
	return &protocol.Chunk{Kind: protocol.ChunkData, Buf: buf}, nil
}

// Dump writes the message to w as a single data Chunk frame.
func (m *Messenger) Dump(w io.Writer) error {
	chunk, err := m.Chunk()
	if err != nil {
		return err
	}
	return protocol.WriteFrame(w, chunk)
}
