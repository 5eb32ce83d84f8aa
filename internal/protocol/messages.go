package protocol

import (
	"fmt"
	"time"

	skerrors "shellkeep/internal/errors"
)

// ── Connect header ───────────────────────────────────────────────────

// HeaderKind distinguishes the two requests a client can open with.
type HeaderKind uint8

const (
	HeaderAttach HeaderKind = iota + 1
	HeaderList
)

func (k HeaderKind) String() string {
	switch k {
	case HeaderAttach:
		return "attach"
	case HeaderList:
		return "list"
	default:
		return fmt.Sprintf("HeaderKind(%d)", uint8(k))
	}
}

// ConnectHeader is the first frame a client sends.  Attach is set only
// when Kind is HeaderAttach.
type ConnectHeader struct {
	Kind   HeaderKind    `cbor:"kind"`
	Attach *AttachHeader `cbor:"attach,omitempty"`
}

// AttachHeader names the session a client wants bound to its stream.
type AttachHeader struct {
	Name string `cbor:"name"`
}

// NewAttachHeader builds the header for attaching to name.
func NewAttachHeader(name string) ConnectHeader {
	return ConnectHeader{Kind: HeaderAttach, Attach: &AttachHeader{Name: name}}
}

// NewListHeader builds the header for a list request.
func NewListHeader() ConnectHeader {
	return ConnectHeader{Kind: HeaderList}
}

func (h *ConnectHeader) validate() error {
	switch h.Kind {
	case HeaderAttach:
		if h.Attach == nil || h.Attach.Name == "" {
			return fmt.Errorf("attach header without a session name")
		}
	case HeaderList:
	default:
		return fmt.Errorf("%w: %d", skerrors.ErrUnknownHeader, h.Kind)
	}
	return nil
}

// ── Attach reply ─────────────────────────────────────────────────────

// AttachStatus is the outcome of an attach request.
type AttachStatus uint8

const (
	StatusCreated AttachStatus = iota + 1
	StatusAttached
	StatusBusy
)

func (s AttachStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusAttached:
		return "attached"
	case StatusBusy:
		return "busy"
	default:
		return fmt.Sprintf("AttachStatus(%d)", uint8(s))
	}
}

// AttachReply answers an attach header.  Motd reports that exactly one
// Chunk frame follows before raw streaming starts.
type AttachReply struct {
	Status AttachStatus `cbor:"status"`
	Motd   bool         `cbor:"motd,omitempty"`
}

func (r *AttachReply) validate() error {
	switch r.Status {
	case StatusCreated, StatusAttached, StatusBusy:
		return nil
	default:
		return fmt.Errorf("unknown attach status %d", r.Status)
	}
}

// ── List reply ───────────────────────────────────────────────────────

// SessionSummary describes one registered session.
type SessionSummary struct {
	Name            string `cbor:"name"`
	StartedAtUnixMs int64  `cbor:"started_at_unix_ms"`
}

// StartedAt converts the wire timestamp back into a time.Time.
func (s SessionSummary) StartedAt() time.Time {
	return time.UnixMilli(s.StartedAtUnixMs)
}

// ListReply carries every registered session.  Order is not
// significant.
type ListReply struct {
	Sessions []SessionSummary `cbor:"sessions"`
}

// ── Chunk ────────────────────────────────────────────────────────────

// ChunkKind tags the payload of a Chunk.
type ChunkKind uint8

const (
	ChunkData ChunkKind = iota + 1
)

// Chunk is a typed data frame for features layered on the control
// framing, such as message-of-the-day delivery.
type Chunk struct {
	Kind ChunkKind `cbor:"kind"`
	Buf  []byte    `cbor:"buf"`
}

func (c *Chunk) validate() error {
	if c.Kind != ChunkData {
		return fmt.Errorf("unknown chunk kind %d", c.Kind)
	}
	return nil
}
