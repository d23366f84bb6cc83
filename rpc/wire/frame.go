package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/sockrpc/rpc/common"
)

// --------------------------------------------------------------------------
// Frame Layout
// --------------------------------------------------------------------------

const (
	// LengthPrefixSize is the size of the frame_length field
	LengthPrefixSize = 4
	// HeaderSize is the size of everything between frame_length and the payload:
	// correlation id (8) + method id (8) + flag (1)
	HeaderSize = 8 + 8 + 1
)

// --------------------------------------------------------------------------
// Flag Definition
// --------------------------------------------------------------------------

// Flag marks a frame as request, ok-response or err-response
type Flag uint8

const (
	FlagRequest Flag = iota
	FlagOk
	FlagErr
)

// String returns the string representation of a Flag.
func (f Flag) String() string {
	switch f {
	case FlagRequest:
		return "request"
	case FlagOk:
		return "ok"
	case FlagErr:
		return "err"
	default:
		return fmt.Sprintf("flag(%d)", uint8(f))
	}
}

// Valid reports whether the flag is one of the known values
func (f Flag) Valid() bool {
	return f <= FlagErr
}

// IsResponse reports whether the flag belongs to a response frame
func (f Flag) IsResponse() bool {
	return f == FlagOk || f == FlagErr
}

// --------------------------------------------------------------------------
// Frame
// --------------------------------------------------------------------------

// Frame is one logical message on the wire:
//
//	[ frame_length u32 ][ correlation_id u64 ][ method_id u64 ][ flag u8 ][ payload ]
//
// All integers are big endian. frame_length covers everything after itself.
type Frame struct {
	CorrelationID uint64
	MethodID      uint64
	Flag          Flag
	Payload       []byte
}

// NewRequest creates a request frame
func NewRequest(correlationID, methodID uint64, payload []byte) Frame {
	return Frame{CorrelationID: correlationID, MethodID: methodID, Flag: FlagRequest, Payload: payload}
}

// NewOkResponse creates the ok-response to a request frame
func NewOkResponse(req Frame, payload []byte) Frame {
	return Frame{CorrelationID: req.CorrelationID, MethodID: req.MethodID, Flag: FlagOk, Payload: payload}
}

// NewErrResponse creates the err-response to a request frame
func NewErrResponse(req Frame, failure *common.RemoteError) Frame {
	return Frame{CorrelationID: req.CorrelationID, MethodID: req.MethodID, Flag: FlagErr, Payload: EncodeFailure(failure)}
}

// Size returns the number of bytes the encoded frame occupies on the wire
func (f Frame) Size() int {
	return LengthPrefixSize + HeaderSize + len(f.Payload)
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{Correlation: %d, Method: %#x, Flag: %s, Payload: %d bytes}",
		f.CorrelationID, f.MethodID, f.Flag, len(f.Payload))
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// CheckPayload returns ErrOversizedPayload if payload exceeds maxPayload
func CheckPayload(payload []byte, maxPayload uint32) error {
	if uint64(len(payload)) > uint64(maxPayload) {
		return fmt.Errorf("%w: %d bytes exceeds the maximum of %d bytes", common.ErrOversizedPayload, len(payload), maxPayload)
	}
	return nil
}

// putHeader writes frame_length and the fixed header into buf[:LengthPrefixSize+HeaderSize]
func putHeader(buf []byte, f Frame) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(HeaderSize+len(f.Payload)))
	binary.BigEndian.PutUint64(buf[4:12], f.CorrelationID)
	binary.BigEndian.PutUint64(buf[12:20], f.MethodID)
	buf[20] = byte(f.Flag)
}

// EncodeFrame returns the complete byte representation of a frame.
// It fails with ErrOversizedPayload if the payload is larger than maxPayload.
func EncodeFrame(f Frame, maxPayload uint32) ([]byte, error) {
	if err := CheckPayload(f.Payload, maxPayload); err != nil {
		return nil, err
	}

	buf := make([]byte, f.Size())
	putHeader(buf, f)
	copy(buf[LengthPrefixSize+HeaderSize:], f.Payload)
	return buf, nil
}

// WriteFrame writes a frame to w. The size check happens before anything is
// written, so an oversized payload never produces a partial frame.
// The caller must make sure only one goroutine writes to w at a time.
func WriteFrame(w io.Writer, f Frame, maxPayload uint32) error {
	if err := CheckPayload(f.Payload, maxPayload); err != nil {
		return err
	}

	header := make([]byte, LengthPrefixSize+HeaderSize)
	putHeader(header, f)

	// header and payload in a single writev where supported
	b := net.Buffers{header, f.Payload}
	_, err := b.WriteTo(w)
	return err
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Reader decodes frames from a byte stream that may deliver data in arbitrary
// chunks. It is not safe for concurrent use.
type Reader struct {
	r          io.Reader
	maxPayload uint32
	header     [LengthPrefixSize + HeaderSize]byte
}

// NewReader creates a frame reader for r
func NewReader(r io.Reader, maxPayload uint32) *Reader {
	return &Reader{
		r:          bufio.NewReaderSize(r, 64*1024),
		maxPayload: maxPayload,
	}
}

// Read reads exactly one frame.
//
// It returns io.EOF if the stream ended cleanly before the first byte of a
// frame, and any other read error at a frame boundary unchanged. Failures
// inside a frame (truncation, a length field that is too small or too large,
// an unknown flag) are reported as ErrFraming; the underlying read error stays
// reachable with errors.Is.
func (fr *Reader) Read() (Frame, error) {
	return readFrame(fr.r, fr.header[:], fr.maxPayload)
}

// ReadFrame reads exactly one frame from r. It reads nothing beyond the end of
// that frame, so consecutive calls on the same stream return consecutive frames.
func ReadFrame(r io.Reader, maxPayload uint32) (Frame, error) {
	var header [LengthPrefixSize + HeaderSize]byte
	return readFrame(r, header[:], maxPayload)
}

func readFrame(r io.Reader, header []byte, maxPayload uint32) (Frame, error) {
	// Read frame_length
	n, err := io.ReadFull(r, header[:LengthPrefixSize])
	if err != nil {
		if n == 0 {
			// nothing of this frame was read yet: a plain end of stream or I/O error
			return Frame{}, err
		}
		return Frame{}, framingError("reading frame length", err)
	}

	frameLen := binary.BigEndian.Uint32(header[:LengthPrefixSize])
	if frameLen < HeaderSize {
		return Frame{}, fmt.Errorf("%w: frame length %d is smaller than the header (%d bytes)", common.ErrFraming, frameLen, HeaderSize)
	}
	payloadLen := frameLen - HeaderSize
	if payloadLen > maxPayload {
		return Frame{}, fmt.Errorf("%w: payload of %d bytes exceeds the maximum of %d bytes", common.ErrFraming, payloadLen, maxPayload)
	}

	// Read header
	if _, err := io.ReadFull(r, header[LengthPrefixSize:]); err != nil {
		return Frame{}, framingError("reading frame header", err)
	}

	f := Frame{
		CorrelationID: binary.BigEndian.Uint64(header[4:12]),
		MethodID:      binary.BigEndian.Uint64(header[12:20]),
		Flag:          Flag(header[20]),
	}
	if !f.Flag.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown flag %d", common.ErrFraming, header[20])
	}

	// Read payload
	f.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, framingError("reading frame payload", err)
	}

	return f, nil
}

// framingError wraps a read failure inside a frame as ErrFraming. A clean EOF
// inside a frame is a truncated frame.
func framingError(step string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %w", common.ErrFraming, step, err)
}
