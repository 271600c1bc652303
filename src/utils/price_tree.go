package utils

// -----------------------------------------------------------------------------
// PriceTree is an unbalanced binary search tree of prices keyed by timestamp.
// Left keys are strictly smaller, right keys strictly greater; a repeated
// timestamp overwrites the price in place. Not safe for concurrent use: each
// session owns its own tree.
// -----------------------------------------------------------------------------

type PriceTree struct {
	root *priceNode
	size int
}

type priceNode struct {
	timestamp int32
	price     int32
	left      *priceNode
	right     *priceNode
}

// -----------------------------------------------------------------------------

func NewPriceTree() *PriceTree {
	return &PriceTree{}
}

// -----------------------------------------------------------------------------

// Insert adds a sample, or overwrites the price of an existing timestamp
func (t *PriceTree) Insert(timestamp, price int32) {
	link := &t.root
	for *link != nil {
		node := *link
		switch {
		case timestamp == node.timestamp:
			node.price = price
			return
		case timestamp < node.timestamp:
			link = &node.left
		default:
			link = &node.right
		}
	}

	*link = &priceNode{timestamp: timestamp, price: price}
	t.size++
}

// -----------------------------------------------------------------------------

// RangeMean returns the floored mean of all prices whose timestamp lies in
// [start, end]. It returns 0 when start > end or nothing is in range.
func (t *PriceTree) RangeMean(start, end int32) int64 {
	if start > end || t.root == nil {
		return 0
	}

	var sum, count int64

	// Iterative pre-order walk; only subtrees that can hold in-range keys are pushed
	stack := []*priceNode{t.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.timestamp >= start && node.timestamp <= end {
			sum += int64(node.price)
			count++
		}
		if node.left != nil && node.timestamp > start {
			stack = append(stack, node.left)
		}
		if node.right != nil && node.timestamp < end {
			stack = append(stack, node.right)
		}
	}

	if count == 0 {
		return 0
	}
	return floorDiv(sum, count)
}

// -----------------------------------------------------------------------------

// Len returns the number of distinct timestamps stored
func (t *PriceTree) Len() int {
	return t.size
}

// -----------------------------------------------------------------------------

// height returns the depth of the deepest leaf (0 for an empty tree)
func height(n *priceNode) int {
	if n == nil {
		return 0
	}
	return 1 + max(height(n.left), height(n.right))
}

// -----------------------------------------------------------------------------

// floorDiv divides rounding toward negative infinity (count is always positive)
func floorDiv(sum, count int64) int64 {
	q := sum / count
	if sum%count != 0 && sum < 0 {
		q--
	}
	return q
}
