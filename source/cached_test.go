package source

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/bagkit/core"
	"github.com/rushteam/bagkit/store"
)

type countingSource struct {
	history *core.ObjectHistory
	calls   int
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) History(context.Context, string, []string) (*core.ObjectHistory, error) {
	c.calls++
	return c.history, nil
}

func TestCachedSource(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	want := &core.ObjectHistory{
		ObjectID: "A",
		Attrs:    []string{"P2M"},
		Rows:     [][]float64{{10}, {6}},
	}
	inner := &countingSource{history: want}
	cached := &CachedSource{Source: inner, Store: ms}

	ctx := context.Background()
	got, err := cached.History(ctx, "A", []string{"P2M"})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("History = %+v, want %+v", got, want)
	}
	if inner.calls != 1 {
		t.Fatalf("inner source called %d times, want 1", inner.calls)
	}

	// 第二次命中缓存快照，不再回源
	got2, err := cached.History(ctx, "A", []string{"P2M"})
	if err != nil {
		t.Fatalf("History (cached): %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner source called %d times after cache hit, want 1", inner.calls)
	}
	if !reflect.DeepEqual(got2.Rows, want.Rows) {
		t.Errorf("cached rows = %v, want %v", got2.Rows, want.Rows)
	}

	// 属性集不同是独立的缓存键
	if _, err := cached.History(ctx, "A", []string{"P2M", "shots"}); err != nil {
		t.Fatalf("History (other attrs): %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner source called %d times for a new attr set, want 2", inner.calls)
	}
}

func TestCachedSource_CorruptSnapshot(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	inner := &countingSource{history: &core.ObjectHistory{ObjectID: "A", Attrs: []string{"x"}, Rows: [][]float64{{1}}}}
	cached := &CachedSource{Source: inner, Store: ms}

	ctx := context.Background()
	// 预写坏快照：当作未命中回源
	if err := ms.Set(ctx, cached.cacheKey("A", []string{"x"}), []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.History(ctx, "A", []string{"x"}); err != nil {
		t.Fatalf("History: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner source called %d times, want 1", inner.calls)
	}
}

func TestTableSource(t *testing.T) {
	table := &core.Table{
		Attributes: []string{"P2M"},
		Matches: []core.Match{
			{Slots: []core.Slot{{ObjectID: "A", Values: map[string]float64{"P2M": 10}}}},
		},
	}
	src := &TableSource{Table: table}
	h, err := src.History(context.Background(), "A", nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if h.Len() != 1 || h.Rows[0][0] != 10 {
		t.Errorf("history = %+v", h)
	}

	if _, err := src.History(context.Background(), "Z", nil); !core.IsInsufficientData(err) {
		t.Errorf("want insufficient data error, got %v", err)
	}
}
