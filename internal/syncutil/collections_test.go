package syncutil

import (
	"sync"
	"testing"
)

func TestCounterConcurrentIncrements(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment()
		}()
	}
	wg.Wait()

	if got := c.Value(); got != 50 {
		t.Fatalf("Value = %d, want 50", got)
	}
	if got := c.Decrement(); got != 49 {
		t.Fatalf("Decrement = %d, want 49", got)
	}
}

func TestCountMapMissingKeysReadZero(t *testing.T) {
	m := NewCountMap()
	if got := m.Get("absent"); got != 0 {
		t.Fatalf("Get(absent) = %d, want 0", got)
	}
	if got := m.Increment("tiingo", 3); got != 3 {
		t.Fatalf("Increment = %d, want 3", got)
	}
	m.Set("finnhub", 7)

	all := m.GetAll()
	if all["tiingo"] != 3 || all["finnhub"] != 7 {
		t.Fatalf("GetAll = %v", all)
	}

	// GetAll must be a defensive copy.
	all["tiingo"] = 99
	if got := m.Get("tiingo"); got != 3 {
		t.Fatalf("Get after mutating copy = %d, want 3", got)
	}
}

func TestQueueDrainAndTotalPut(t *testing.T) {
	var q Queue[string]
	q.Put("a")
	q.Put("b")

	item, ok := q.Get()
	if !ok || item != "a" {
		t.Fatalf("Get = %q ok=%v, want a", item, ok)
	}

	q.Put("c")
	rest := q.GetAll()
	if len(rest) != 2 || rest[0] != "b" || rest[1] != "c" {
		t.Fatalf("GetAll = %v", rest)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after drain = %d", q.Len())
	}
	if got := q.TotalPut(); got != 3 {
		t.Fatalf("TotalPut = %d, want 3 (consumption must not affect it)", got)
	}

	if _, ok := q.Get(); ok {
		t.Fatalf("Get on empty queue should report false")
	}
}

func TestMapGetAllIsACopy(t *testing.T) {
	m := NewMap[string, []int]()
	m.Set("k", []int{1})

	all := m.GetAll()
	all["other"] = []int{2}

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	if _, ok := m.Get("other"); ok {
		t.Fatalf("mutating the copy must not touch the map")
	}
}
