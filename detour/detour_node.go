package detour

import (
	"container/heap"

	assert "github.com/arl/assertgo"

	"github.com/gorustyt/tilemesh/common"
)

const (
	DT_NODE_OPEN            = 0x01
	DT_NODE_CLOSED          = 0x02
	DT_NODE_PARENT_DETACHED = 0x04 // parent of the node is not adjacent. Found using raycast.
)

type DtNodeIndex uint16

const (
	DT_NULL_IDX         = DtNodeIndex(0xffff)
	DT_NODE_PARENT_BITS = 24
)

type DtNode struct {
	Pos   [3]float32 ///< Position of the node.
	Cost  float32    ///< Cost from previous node to current node.
	Total float32    ///< Cost up to the node.
	Pidx  uint32     ///< Index to parent node, 0 means none.
	Flags uint32     ///< Node flags. A combination of DtNodeFlags.
	Id    DtPolyRef  ///< Polygon ref the node corresponds to.
	index int        // position in the open list heap
	slot  uint32     // 1-based position in the owning pool
}

func (node *DtNode) SetIndex(index int) { node.index = index }

func (node *DtNode) GetIndex() int { return node.index }

type NodeQueueIndex interface {
	SetIndex(index int)
	GetIndex() int
}

type NodeQueue[T NodeQueueIndex] interface {
	Peek() T   // top of the heap, not removed
	Poll() T   // pops the top of the heap
	Update(T)  // restores ordering after the element's key changed
	Offer(T)   // pushes an element
	Reset()
	Empty() bool
}

// nodeQueue is a binary min-heap keyed by less.
type nodeQueue[T NodeQueueIndex] struct {
	data []T
	less func(t1, t2 T) bool
}

func NewNodeQueue[T NodeQueueIndex](less func(t1, t2 T) bool) NodeQueue[T] {
	q := &nodeQueue[T]{less: less}
	heap.Init(q)
	return q
}

func (q *nodeQueue[T]) Reset() { q.data = q.data[:0] }

func (q *nodeQueue[T]) Peek() T { return q.data[0] }

func (q *nodeQueue[T]) Poll() T { return heap.Pop(q).(T) }

func (q *nodeQueue[T]) Update(value T) { heap.Fix(q, value.GetIndex()) }

func (q *nodeQueue[T]) Offer(value T) { heap.Push(q, value) }

func (q *nodeQueue[T]) Empty() bool { return len(q.data) == 0 }

func (q *nodeQueue[T]) Push(x any) {
	v := x.(T)
	v.SetIndex(len(q.data))
	q.data = append(q.data, v)
}

func (q *nodeQueue[T]) Pop() any {
	n := len(q.data) - 1
	res := q.data[n]
	var zero T
	q.data[n] = zero
	q.data = q.data[:n]
	res.SetIndex(-1)
	return res
}

func (q *nodeQueue[T]) Len() int { return len(q.data) }

func (q *nodeQueue[T]) Less(i, j int) bool { return q.less(q.data[i], q.data[j]) }

func (q *nodeQueue[T]) Swap(i, j int) {
	q.data[i], q.data[j] = q.data[j], q.data[i]
	q.data[i].SetIndex(i)
	q.data[j].SetIndex(j)
}

func dtHashRef(a DtPolyRef) uint32 {
	x := uint32(a)
	x += ^(x << 15)
	x ^= x >> 10
	x += x << 3
	x ^= x >> 6
	x += ^(x << 11)
	x ^= x >> 16
	return x
}

// DtNodePool is a fixed capacity hash of search nodes keyed by polygon reference.
type DtNodePool struct {
	nodes     []DtNode
	first     []DtNodeIndex
	next      []DtNodeIndex
	maxNodes  int
	hashSize  int
	nodeCount int
}

func NewDtNodePool(maxNodes, hashSize int) *DtNodePool {
	assert.True(common.NextPow2(uint32(hashSize)) == uint32(hashSize), "hash size must be a power of two")
	// pidx is special as 0 means "none" and 1 is the first node. For that reason
	// we have 1 fewer nodes available than the number of values it can contain.
	assert.True(maxNodes > 0 && maxNodes < int(DT_NULL_IDX), "node count out of range")
	p := &DtNodePool{
		nodes:    make([]DtNode, maxNodes),
		next:     make([]DtNodeIndex, maxNodes),
		first:    make([]DtNodeIndex, hashSize),
		maxNodes: maxNodes,
		hashSize: hashSize,
	}
	p.Clear()
	return p
}

// GetNodeIdx returns the 1-based index of node, 0 for nil.
func (p *DtNodePool) GetNodeIdx(node *DtNode) uint32 {
	if node == nil {
		return 0
	}
	return node.slot
}

func (p *DtNodePool) GetNodeAtIdx(idx uint32) *DtNode {
	if idx == 0 {
		return nil
	}
	return &p.nodes[idx-1]
}

func (p *DtNodePool) MaxNodes() int  { return p.maxNodes }
func (p *DtNodePool) NodeCount() int { return p.nodeCount }

func (p *DtNodePool) Clear() {
	for i := range p.first {
		p.first[i] = DT_NULL_IDX
	}
	p.nodeCount = 0
}

// FindNode returns the node for id, or nil if it was never allocated.
func (p *DtNodePool) FindNode(id DtPolyRef) *DtNode {
	bucket := dtHashRef(id) & uint32(p.hashSize-1)
	for i := p.first[bucket]; i != DT_NULL_IDX; i = p.next[i] {
		if p.nodes[i].Id == id {
			return &p.nodes[i]
		}
	}
	return nil
}

// GetNode returns the node for id, allocating it if needed. Returns nil when the pool is exhausted.
func (p *DtNodePool) GetNode(id DtPolyRef) *DtNode {
	if n := p.FindNode(id); n != nil {
		return n
	}
	if p.nodeCount >= p.maxNodes {
		return nil
	}

	i := DtNodeIndex(p.nodeCount)
	p.nodeCount++

	// Init node
	node := &p.nodes[i]
	*node = DtNode{Id: id, index: -1, slot: uint32(i) + 1}

	bucket := dtHashRef(id) & uint32(p.hashSize-1)
	p.next[i] = p.first[bucket]
	p.first[bucket] = i
	return node
}
