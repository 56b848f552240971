package index

import (
	"testing"

	"geoindex/util"
)

func TestChooseSplitIndex_smallerAreaBreaksOverlapTies(t *testing.T) {
	// Arrange: six unit-height strips in stored order. All legal split
	// positions (2, 3 and 4) have zero overlap, so the total area decides:
	//   i=2: (0,2) + (2,11)  -> 2 + 9 = 11
	//   i=3: (0,3) + (3,11)  -> 3 + 8 = 11
	//   i=4: (0,4) + (9,11)  -> 4 + 2 = 6
	node := &Node[int]{
		children: []*Node[int]{
			NewEntry[int](env(0, 0, 1, 1), 0),
			NewEntry[int](env(1, 0, 2, 1), 0),
			NewEntry[int](env(2, 0, 3, 1), 0),
			NewEntry[int](env(3, 0, 4, 1), 0),
			NewEntry[int](env(9, 0, 10, 1), 0),
			NewEntry[int](env(10, 0, 11, 1), 0),
		},
	}

	tree := New[int](9)

	// Act
	index := tree.chooseSplitIndex(node, 2, 6)

	// Assert
	util.AssertEqual(t, 4, index)
}
