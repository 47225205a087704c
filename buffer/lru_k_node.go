package buffer

const INVALID_FRAME_ID = -1

// lrukNode tracks one frame's access history. Nodes with fewer than k
// recorded accesses live in the replacer's history list (FIFO by first
// access); once the k-th access lands, the node graduates to the cache
// list (ordered by last access).
type lrukNode struct {
	prev        *lrukNode
	next        *lrukNode
	frameId     int
	k           int
	history     []int
	lastAccess  int
	isEvictable bool
}

// hasKAccess reports whether this node has been accessed at least k
// times, i.e. whether it belongs in the cache list rather than history.
func (n *lrukNode) hasKAccess() bool {
	return len(n.history) >= n.k
}

// kthAccess returns the timestamp of the k-th most recent access (the
// oldest entry retained once history is full), or -1 if unseen.
func (n *lrukNode) kthAccess() int {
	if len(n.history) > 0 {
		return n.history[0]
	}

	return -1
}

func (n *lrukNode) addTimestamp(timestamp int) {
	n.lastAccess = timestamp

	if len(n.history) < n.k {
		n.history = append(n.history, timestamp)
		return
	}

	n.history = n.history[1:]
	n.history = append(n.history, timestamp)
}
