// Package codec converts between the 9-byte client frames, 4-byte replies and
// their integer values. All integers are big-endian two's complement.
package codec

import (
	"encoding/binary"
	"math"

	"means-server/src/helpers"
	"means-server/src/models"
)

const (
	IntSize   = 4
	FrameSize = 1 + 2*IntSize

	// ErrorValue is written back for any frame that could not be handled
	ErrorValue int32 = math.MinInt32
)

// errorReply is the pre-encoded ErrorValue
var errorReply = [IntSize]byte{0x80, 0x00, 0x00, 0x00}

// -----------------------------------------------------------------------------

// DecodeInt32 reads exactly 4 bytes as a signed 32-bit integer
func DecodeInt32(b []byte) (int32, error) {
	if len(b) != IntSize {
		return 0, helpers.NewFormatError("input must be exactly %d bytes long, got %d", IntSize, len(b))
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// -----------------------------------------------------------------------------

// EncodeInt32 writes v as 4 bytes, failing when v does not fit in 32 bits
func EncodeInt32(v int64) ([]byte, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, helpers.NewRangeError("value %d outside [%d, %d]", v, math.MinInt32, math.MaxInt32)
	}
	buf := make([]byte, IntSize)
	binary.BigEndian.PutUint32(buf, uint32(int32(v)))
	return buf, nil
}

// -----------------------------------------------------------------------------

// ErrorReply returns a fresh copy of the encoded ErrorValue
func ErrorReply() []byte {
	reply := errorReply
	return reply[:]
}

// -----------------------------------------------------------------------------

// DecodeMessage parses one 9-byte frame. Unknown type tags are a FormatError.
func DecodeMessage(frame []byte) (models.MMessage, error) {
	if len(frame) != FrameSize {
		return models.MMessage{}, helpers.NewFormatError("frame must be exactly %d bytes long, got %d", FrameSize, len(frame))
	}

	msg := models.MMessage{Type: frame[0]}
	if msg.Type != models.MessageInsert && msg.Type != models.MessageQuery {
		return msg, helpers.NewFormatError("invalid message type %q", msg.Type)
	}

	var err error
	if msg.Val1, err = DecodeInt32(frame[1:5]); err != nil {
		return msg, err
	}
	if msg.Val2, err = DecodeInt32(frame[5:9]); err != nil {
		return msg, err
	}
	return msg, nil
}

// -----------------------------------------------------------------------------

// EncodeMessage builds the 9-byte frame for msg (client side)
func EncodeMessage(msg models.MMessage) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = msg.Type
	binary.BigEndian.PutUint32(frame[1:5], uint32(msg.Val1))
	binary.BigEndian.PutUint32(frame[5:9], uint32(msg.Val2))
	return frame
}

// -----------------------------------------------------------------------------

// Insert and Query are shorthands for building client frames
func Insert(timestamp, price int32) []byte {
	return EncodeMessage(models.MMessage{Type: models.MessageInsert, Val1: timestamp, Val2: price})
}

func Query(start, end int32) []byte {
	return EncodeMessage(models.MMessage{Type: models.MessageQuery, Val1: start, Val2: end})
}
