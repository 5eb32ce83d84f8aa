package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"shellkeep/config"
	skerrors "shellkeep/internal/errors"
)

// encMode uses Core Deterministic Encoding so the same message always
// produces the same bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields so newer peers can add optional keys.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

// prefixLen is the size of the little-endian length prefix.
const prefixLen = 4

// WriteFrame encodes msg and writes it as one length-prefixed frame.
func WriteFrame(w io.Writer, msg any) error {
	payload, err := encMode.Marshal(msg)
	if err != nil {
		return &skerrors.ProtocolError{Stage: stageOf(msg), Err: err}
	}
	if len(payload) > config.MaxFrameSize {
		return &skerrors.ProtocolError{Stage: stageOf(msg), Err: skerrors.ErrPayloadTooLarge}
	}

	frame := make([]byte, prefixLen+len(payload))
	binary.LittleEndian.PutUint32(frame[:prefixLen], uint32(len(payload)))
	copy(frame[prefixLen:], payload)

	if _, err := w.Write(frame); err != nil {
		return skerrors.Wrap("write", "frame", err)
	}
	return nil
}

// ReadFrame reads exactly one frame from r and decodes it into msg,
// which must be a pointer to the message expected at this point in
// the protocol.
func ReadFrame(r io.Reader, msg any) error {
	var prefix [prefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return skerrors.Wrap("read", "frame length prefix", err)
	}
	n := binary.LittleEndian.Uint32(prefix[:])
	if n > config.MaxFrameSize {
		return &skerrors.ProtocolError{
			Stage: stageOf(msg),
			Err:   fmt.Errorf("%w: %d bytes", skerrors.ErrPayloadTooLarge, n),
		}
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return skerrors.Wrap("read", "frame payload", err)
	}
	if err := decMode.Unmarshal(payload, msg); err != nil {
		return &skerrors.ProtocolError{Stage: stageOf(msg), Err: err}
	}
	if v, ok := msg.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return &skerrors.ProtocolError{Stage: stageOf(msg), Err: err}
		}
	}
	return nil
}

// DeadlineWriter is a writer whose blocking can be bounded, such as a
// net.Conn.
type DeadlineWriter interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// DeadlineReader is a reader whose blocking can be bounded.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// WriteFrameTimeout writes one frame with a write deadline of timeout,
// clearing the deadline afterwards so later streaming on the same
// connection is unbounded.
func WriteFrameTimeout(w DeadlineWriter, msg any, timeout time.Duration) error {
	if err := w.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return skerrors.Wrap("set write deadline", "frame", err)
	}
	werr := WriteFrame(w, msg)
	if err := w.SetWriteDeadline(time.Time{}); err != nil && werr == nil {
		return skerrors.Wrap("clear write deadline", "frame", err)
	}
	return werr
}

// ReadFrameTimeout reads one frame with a read deadline of timeout and
// clears it afterwards.
func ReadFrameTimeout(r DeadlineReader, msg any, timeout time.Duration) error {
	if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return skerrors.Wrap("set read deadline", "frame", err)
	}
	rerr := ReadFrame(r, msg)
	if err := r.SetReadDeadline(time.Time{}); err != nil && rerr == nil {
		return skerrors.Wrap("clear read deadline", "frame", err)
	}
	return rerr
}

func stageOf(msg any) string {
	switch msg.(type) {
	case ConnectHeader, *ConnectHeader:
		return "connect header"
	case AttachReply, *AttachReply:
		return "attach reply"
	case ListReply, *ListReply:
		return "list reply"
	case Chunk, *Chunk:
		return "chunk"
	default:
		return fmt.Sprintf("%T", msg)
	}
}
