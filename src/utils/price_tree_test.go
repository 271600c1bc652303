package utils

import (
	"math"
	"testing"
)

func buildTree(pairs ...[2]int32) *PriceTree {
	tree := NewPriceTree()
	for _, p := range pairs {
		tree.Insert(p[0], p[1])
	}
	return tree
}

func TestPriceTree_RangeMean(t *testing.T) {
	tree := buildTree([2]int32{10, 5}, [2]int32{5, 3}, [2]int32{15, 7}, [2]int32{3, 2}, [2]int32{7, 4})

	tests := []struct {
		name       string
		start, end int32
		want       int64
	}{
		{"reference range", 5, 15, 4}, // (5+3+7+4)/4 = 4.75
		{"everything", math.MinInt32, math.MaxInt32, 4},
		{"single key", 7, 7, 4},
		{"left edge", 3, 5, 2},
		{"no match between keys", 11, 14, 0},
		{"below all keys", -100, 2, 0},
		{"above all keys", 16, 100, 0},
		{"start after end", 15, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tree.RangeMean(tt.start, tt.end); got != tt.want {
				t.Errorf("RangeMean(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestPriceTree_EmptyStore(t *testing.T) {
	tree := NewPriceTree()
	if got := tree.RangeMean(math.MinInt32, math.MaxInt32); got != 0 {
		t.Errorf("Expected 0 on empty store, got %d", got)
	}
	if tree.Len() != 0 || height(tree.root) != 0 {
		t.Errorf("Expected empty tree, got len=%d height=%d", tree.Len(), height(tree.root))
	}
}

func TestPriceTree_OverwriteKeepsSize(t *testing.T) {
	tree := buildTree([2]int32{12345, 101}, [2]int32{12346, 103})
	tree.Insert(12345, 201)

	if tree.Len() != 2 {
		t.Fatalf("Expected 2 nodes after overwrite, got %d", tree.Len())
	}
	if got := tree.RangeMean(12345, 12345); got != 201 {
		t.Errorf("Expected overwritten price 201, got %d", got)
	}
	if got := tree.RangeMean(12345, 12346); got != 152 {
		t.Errorf("Expected mean 152, got %d", got)
	}
}

func TestPriceTree_FloorsNegativeMeans(t *testing.T) {
	tree := buildTree([2]int32{1, -1}, [2]int32{2, -2})
	if got := tree.RangeMean(1, 2); got != -2 {
		t.Errorf("Expected floor(-1.5) = -2, got %d", got)
	}

	tree = buildTree([2]int32{1, -3}, [2]int32{2, 1})
	if got := tree.RangeMean(1, 2); got != -1 {
		t.Errorf("Expected -1, got %d", got)
	}
}

func TestPriceTree_WideSum(t *testing.T) {
	tree := NewPriceTree()
	for ts := int32(0); ts < 1000; ts++ {
		tree.Insert(ts, math.MaxInt32)
	}
	if got := tree.RangeMean(0, 999); got != math.MaxInt32 {
		t.Errorf("Expected %d, got %d", int64(math.MaxInt32), got)
	}

	tree = NewPriceTree()
	for ts := int32(0); ts < 1000; ts++ {
		tree.Insert(ts, math.MinInt32)
	}
	if got := tree.RangeMean(0, 999); got != math.MinInt32 {
		t.Errorf("Expected %d, got %d", int64(math.MinInt32), got)
	}
}

func TestPriceTree_OverwriteKeepsOrder(t *testing.T) {
	tree := buildTree([2]int32{10, 1}, [2]int32{-5, 2}, [2]int32{20, 3}, [2]int32{0, 4}, [2]int32{-5, 9})

	if tree.Len() != 4 {
		t.Fatalf("Expected 4 distinct timestamps, got %d", tree.Len())
	}

	points := map[int32]int64{-5: 9, 0: 4, 10: 1, 20: 3}
	for ts, want := range points {
		if got := tree.RangeMean(ts, ts); got != want {
			t.Errorf("RangeMean(%d, %d) = %d, want %d", ts, ts, got, want)
		}
	}
	// Gaps between keys hold nothing
	if got := tree.RangeMean(1, 9); got != 0 {
		t.Errorf("RangeMean(1, 9) = %d, want 0", got)
	}
}

func TestPriceTree_SortedInsertIsUnbalanced(t *testing.T) {
	tree := NewPriceTree()
	for ts := int32(1); ts <= 64; ts++ {
		tree.Insert(ts, ts)
	}
	if height(tree.root) != 64 {
		t.Errorf("Expected a degenerate tree of height 64, got %d", height(tree.root))
	}
	// sum 1..64 = 2080, mean 32.5
	if got := tree.RangeMean(1, 64); got != 32 {
		t.Errorf("Expected 32, got %d", got)
	}
}
