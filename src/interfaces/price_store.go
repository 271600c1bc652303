package interfaces

// -----------------------------------------------------------------------------
// IPriceStore is the per-session ordered store of (timestamp, price) samples.
// -----------------------------------------------------------------------------

type IPriceStore interface {
	// Insert adds a sample or overwrites the price for an existing timestamp.
	Insert(timestamp, price int32)

	// RangeMean returns the floored mean price over [start, end], 0 when empty.
	RangeMean(start, end int32) int64

	// Len returns the number of distinct timestamps held.
	Len() int
}
