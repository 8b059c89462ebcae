package globe

// TileReplacementQueue is an intrusive doubly linked list of tiles ordered
// from most recently used (head) to least recently used (tail). Every tile
// with allocated payload appears in the list exactly once; trimming from the
// tail releases payload without destroying the tiles themselves.
//
// The queue and the tiles it links are owned by the frame goroutine. The
// required call ordering within a frame is MarkStartOfRenderFrame, then any
// number of MarkTileRendered calls, then TrimTiles.
type TileReplacementQueue struct {
	head  *Tile
	tail  *Tile
	count int

	// lastBeforeStartOfFrame marks the boundary between tiles touched this
	// frame and tiles last touched in earlier frames. Trimming never
	// crosses it toward the head.
	lastBeforeStartOfFrame *Tile
}

// NewTileReplacementQueue creates an empty queue.
func NewTileReplacementQueue() *TileReplacementQueue {
	return &TileReplacementQueue{}
}

// Count returns the number of linked tiles.
func (q *TileReplacementQueue) Count() int { return q.count }

// Head returns the most recently used tile, or nil when the queue is empty.
func (q *TileReplacementQueue) Head() *Tile { return q.head }

// Tail returns the least recently used tile, or nil when the queue is empty.
func (q *TileReplacementQueue) Tail() *Tile { return q.tail }

// MarkStartOfRenderFrame records the current head. Tiles rendered after this
// call sit between the new head and the marker and are protected from
// trimming until the next frame.
func (q *TileReplacementQueue) MarkStartOfRenderFrame() {
	q.lastBeforeStartOfFrame = q.head
}

// MarkTileRendered moves tile to the head of the queue, linking it in first
// if necessary.
func (q *TileReplacementQueue) MarkTileRendered(tile *Tile) {
	if q.head == tile {
		// Re-touching the head: if the head is also the pre-frame marker,
		// the marker moves past it so this frame's tiles stay protected.
		if tile == q.lastBeforeStartOfFrame {
			q.lastBeforeStartOfFrame = tile.queueNext
		}
		return
	}

	q.count++

	if q.head == nil {
		tile.queuePrev = nil
		tile.queueNext = nil
		q.head = tile
		q.tail = tile
		return
	}

	if tile.queuePrev != nil || tile.queueNext != nil || q.tail == tile {
		// Already linked elsewhere; unlink (which decrements count) before
		// relinking at the head.
		q.remove(tile)
	}

	tile.queuePrev = nil
	tile.queueNext = q.head
	q.head.queuePrev = tile
	q.head = tile
}

// TrimTiles walks from the tail releasing tile payloads until the queue
// holds at most maximumTiles, the walk reaches the pre-frame marker, or the
// tail is exhausted. Tiles in TileTransitioning are skipped: their payload
// is about to be written by an in-flight operation.
func (q *TileReplacementQueue) TrimTiles(maximumTiles int) {
	tileToTrim := q.tail
	for q.count > maximumTiles && tileToTrim != nil {
		if tileToTrim == q.lastBeforeStartOfFrame {
			break
		}
		previous := tileToTrim.queuePrev
		if tileToTrim.State != TileTransitioning {
			tileToTrim.FreeResources()
			q.remove(tileToTrim)
		}
		tileToTrim = previous
	}
}

// remove unlinks tile, fixing the marker when it pointed at the tile.
func (q *TileReplacementQueue) remove(tile *Tile) {
	previous := tile.queuePrev
	next := tile.queueNext

	if tile == q.lastBeforeStartOfFrame {
		q.lastBeforeStartOfFrame = next
	}

	if tile == q.head {
		q.head = next
	} else {
		previous.queueNext = next
	}

	if tile == q.tail {
		q.tail = previous
	} else {
		next.queuePrev = previous
	}

	tile.queuePrev = nil
	tile.queueNext = nil
	q.count--
}
