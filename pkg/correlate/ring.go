package correlate

// ringBuffer is the bounded cache of recently ingested replies backing
// the fallback matching path. It is only ever touched from the
// correlator loop, so it carries no locking of its own.
type ringBuffer struct {
	capacity int
	entries  []Reply
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		capacity: capacity,
		entries:  make([]Reply, 0, capacity),
	}
}

// Insert appends a reply, evicting the entry with the smallest arrival
// timestamp once the buffer is full. Sequence order is authoritative for
// lookups; the timestamp only decides eviction ties from clock skew.
func (b *ringBuffer) Insert(reply Reply) {
	b.entries = append(b.entries, reply)
	if len(b.entries) <= b.capacity {
		return
	}

	oldest := 0
	for i := 1; i < len(b.entries); i++ {
		entry := b.entries[i]
		if entry.At.Before(b.entries[oldest].At) ||
			(entry.At.Equal(b.entries[oldest].At) && entry.Seq < b.entries[oldest].Seq) {
			oldest = i
		}
	}

	b.entries = append(b.entries[:oldest], b.entries[oldest+1:]...)
}

// MostRecentAfter returns the reply with the greatest sequence
// identifier strictly greater than seq, if any.
func (b *ringBuffer) MostRecentAfter(seq int64) (Reply, bool) {
	var best Reply
	found := false
	for _, entry := range b.entries {
		if entry.Seq <= seq {
			continue
		}
		if !found || entry.Seq > best.Seq {
			best = entry
			found = true
		}
	}
	return best, found
}

// LatestWhere returns the highest-sequence reply satisfying pred.
func (b *ringBuffer) LatestWhere(pred func(Reply) bool) (Reply, bool) {
	var best Reply
	found := false
	for _, entry := range b.entries {
		if !pred(entry) {
			continue
		}
		if !found || entry.Seq > best.Seq {
			best = entry
			found = true
		}
	}
	return best, found
}

func (b *ringBuffer) Len() int {
	return len(b.entries)
}
