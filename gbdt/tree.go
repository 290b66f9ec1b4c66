package gbdt

import (
	"math"
)

// Node is one entry of a tree's node array. A leaf has Left == Right == -1.
type Node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	DefaultLeft bool    `json:"default_left"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`

	// Weight is the leaf value; on internal nodes it is the weight the node
	// would have had as a leaf.
	Weight float64 `json:"weight"`
	Gain   float64 `json:"gain"`
	Cover  float64 `json:"cover"`
	Count  int     `json:"count"`
	Depth  int     `json:"depth"`
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a regression tree stored as an index-addressed node array rooted at 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// LeafIndex walks row from the root and returns the index of the reached leaf.
// Missing values (NaN) follow the node's default direction.
func (t *Tree) LeafIndex(row []float64) int {
	id := 0
	for {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return id
		}
		v := row[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				id = n.Left
			} else {
				id = n.Right
			}
		case v <= n.Threshold:
			id = n.Left
		default:
			id = n.Right
		}
	}
}

// Evaluate returns the leaf weight reached by row.
func (t *Tree) Evaluate(row []float64) float64 {
	return t.Nodes[t.LeafIndex(row)].Weight
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Depth returns the depth of the deepest node; a single leaf has depth 0.
func (t *Tree) Depth() int {
	d := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > d {
			d = t.Nodes[i].Depth
		}
	}
	return d
}
