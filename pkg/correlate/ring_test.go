package correlate

import (
	"testing"
	"time"
)

func bufferedReply(seq int64, at time.Time) Reply {
	return Reply{Seq: seq, At: at, Raw: "reply", Text: "reply"}
}

func TestRingBufferBound(t *testing.T) {
	const capacity = 5
	b := newRingBuffer(capacity)

	base := time.Now().UTC()
	for i := 0; i < capacity+3; i++ {
		b.Insert(bufferedReply(int64(i+1), base.Add(time.Duration(i)*time.Second)))
	}

	if got := b.Len(); got != capacity {
		t.Fatalf("len = %d, want %d", got, capacity)
	}

	// The three oldest entries were evicted and must not be returned.
	for seq := int64(1); seq <= 3; seq++ {
		if reply, ok := b.MostRecentAfter(seq - 1); ok && reply.Seq == seq {
			t.Fatalf("evicted seq %d still returned", seq)
		}
	}

	reply, ok := b.MostRecentAfter(0)
	if !ok || reply.Seq != 8 {
		t.Fatalf("MostRecentAfter(0) = %v %v, want seq 8", reply.Seq, ok)
	}
}

func TestRingBufferEvictsSmallestTimestamp(t *testing.T) {
	b := newRingBuffer(2)
	base := time.Now().UTC()

	// Wall clocks can run backwards relative to sequence order.
	b.Insert(bufferedReply(1, base.Add(time.Minute)))
	b.Insert(bufferedReply(2, base))
	b.Insert(bufferedReply(3, base.Add(2*time.Minute)))

	if _, ok := b.MostRecentAfter(1); !ok {
		t.Fatal("expected surviving entries after seq 1")
	}
	reply, ok := b.LatestWhere(func(r Reply) bool { return r.Seq == 2 })
	if ok {
		t.Fatalf("seq 2 should have been evicted, got %v", reply.Seq)
	}
	if reply, ok := b.LatestWhere(func(r Reply) bool { return r.Seq == 1 }); !ok || reply.Seq != 1 {
		t.Fatal("seq 1 should survive eviction by timestamp")
	}
}

func TestMostRecentAfterStrict(t *testing.T) {
	b := newRingBuffer(10)
	base := time.Now().UTC()
	b.Insert(bufferedReply(5, base))

	if _, ok := b.MostRecentAfter(5); ok {
		t.Fatal("seq must be strictly greater than the argument")
	}
	if reply, ok := b.MostRecentAfter(4); !ok || reply.Seq != 5 {
		t.Fatalf("MostRecentAfter(4) = %v %v, want seq 5", reply.Seq, ok)
	}
}

func TestLatestWherePicksHighestSeq(t *testing.T) {
	b := newRingBuffer(10)
	base := time.Now().UTC()
	for seq := int64(1); seq <= 4; seq++ {
		b.Insert(bufferedReply(seq, base))
	}

	reply, ok := b.LatestWhere(func(r Reply) bool { return r.Seq%2 == 0 })
	if !ok || reply.Seq != 4 {
		t.Fatalf("LatestWhere = %v %v, want seq 4", reply.Seq, ok)
	}

	if _, ok := b.LatestWhere(func(Reply) bool { return false }); ok {
		t.Fatal("expected no match")
	}
}
