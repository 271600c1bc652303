package models

// -----------------------------------------------------------------------------
// Wire message types
// -----------------------------------------------------------------------------

const (
	MessageInsert byte = 'I'
	MessageQuery  byte = 'Q'
)

// MMessage is one decoded 9-byte client frame.
// For inserts Val1/Val2 are timestamp/price, for queries they are the
// inclusive range start/end.
type MMessage struct {
	Type byte
	Val1 int32
	Val2 int32
}
