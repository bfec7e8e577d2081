package events

import "testing"

type namedEvent string

func (n namedEvent) EventType() string { return string(n) }

type collector struct{ seen []string }

func (c *collector) Emit(evt Event) { c.seen = append(c.seen, evt.EventType()) }

func TestBufferFlushAndReset(t *testing.T) {
	var buf Buffer
	buf.Emit(namedEvent("a"))
	buf.Emit(nil)
	buf.Emit(namedEvent("b"))

	first, second := &collector{}, &collector{}
	flushed := buf.Flush(Multi{first, nil, second})
	if len(flushed) != 2 {
		t.Fatalf("expected 2 events, got %d", len(flushed))
	}
	if first.seen[0] != "a" || first.seen[1] != "b" || len(second.seen) != 2 {
		t.Fatalf("unexpected fan-out %v %v", first.seen, second.seen)
	}

	buf.Emit(namedEvent("dropped"))
	buf.Reset()
	if got := buf.Flush(first); len(got) != 0 {
		t.Fatalf("expected empty buffer after reset, got %d", len(got))
	}
}
