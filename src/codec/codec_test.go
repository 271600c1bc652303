package codec

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"means-server/src/helpers"
	"means-server/src/models"
)

func TestInt32RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 101, 12345, -12345, math.MaxInt32, math.MinInt32, 1 << 24, -(1 << 24)}

	for _, v := range values {
		buf, err := EncodeInt32(int64(v))
		if err != nil {
			t.Fatalf("EncodeInt32(%d) failed: %v", v, err)
		}
		got, err := DecodeInt32(buf)
		if err != nil {
			t.Fatalf("DecodeInt32(%x) failed: %v", buf, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %x -> %d", v, buf, got)
		}
	}
}

func TestEncodeInt32_BigEndian(t *testing.T) {
	buf, _ := EncodeInt32(12345)
	if !bytes.Equal(buf, []byte{0x00, 0x00, 0x30, 0x39}) {
		t.Errorf("Expected 00003039, got %x", buf)
	}

	buf, _ = EncodeInt32(-2)
	if !bytes.Equal(buf, []byte{0xff, 0xff, 0xff, 0xfe}) {
		t.Errorf("Expected fffffffe, got %x", buf)
	}
}

func TestEncodeInt32_OutOfRange(t *testing.T) {
	for _, v := range []int64{math.MaxInt32 + 1, math.MinInt32 - 1, math.MaxInt64} {
		_, err := EncodeInt32(v)
		var rangeErr *helpers.RangeError
		if !errors.As(err, &rangeErr) {
			t.Errorf("EncodeInt32(%d): expected RangeError, got %v", v, err)
		}
	}
}

func TestDecodeInt32_WrongLength(t *testing.T) {
	for _, b := range [][]byte{nil, {}, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		_, err := DecodeInt32(b)
		var formatErr *helpers.FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("DecodeInt32(%x): expected FormatError, got %v", b, err)
		}
	}
}

func TestErrorReply(t *testing.T) {
	got, err := DecodeInt32(ErrorReply())
	if err != nil || got != ErrorValue {
		t.Fatalf("Expected %d, got %d (%v)", ErrorValue, got, err)
	}

	// Callers may mutate their copy
	r := ErrorReply()
	r[0] = 0
	if ErrorReply()[0] != 0x80 {
		t.Error("ErrorReply must return a fresh copy")
	}
}

func TestDecodeMessage(t *testing.T) {
	// I 12345 101
	frame := []byte{0x49, 0x00, 0x00, 0x30, 0x39, 0x00, 0x00, 0x00, 0x65}
	msg, err := DecodeMessage(frame)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if msg.Type != models.MessageInsert || msg.Val1 != 12345 || msg.Val2 != 101 {
		t.Errorf("Unexpected message %+v", msg)
	}

	if !bytes.Equal(Insert(12345, 101), frame) {
		t.Errorf("Insert frame mismatch: %x", Insert(12345, 101))
	}

	msg, err = DecodeMessage(Query(-5, 7))
	if err != nil || msg.Type != models.MessageQuery || msg.Val1 != -5 || msg.Val2 != 7 {
		t.Errorf("Unexpected query decode %+v (%v)", msg, err)
	}
}

func TestDecodeMessage_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"unknown type", []byte{'X', 0, 0, 0x30, 0x39, 0, 0, 0x30, 0x3a}},
		{"lowercase type", []byte{'i', 0, 0, 0, 1, 0, 0, 0, 2}},
		{"short frame", []byte{'I', 0, 0, 0}},
		{"long frame", make([]byte, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage(tt.frame)
			var formatErr *helpers.FormatError
			if !errors.As(err, &formatErr) {
				t.Errorf("Expected FormatError, got %v", err)
			}
		})
	}
}
