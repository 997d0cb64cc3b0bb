package dedup

import (
	"testing"
	"time"
)

func TestKeyIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, 12, 9, 9, 0, 0, 0, time.UTC)
	night := time.Date(2025, 12, 9, 23, 0, 0, 0, time.UTC)

	k1 := Key("Apple Q4 Earnings", "tiingo", morning)
	k2 := Key("Apple Q4 Earnings", "tiingo", night)
	if k1 != k2 {
		t.Fatalf("same calendar day must yield the same key: %s vs %s", k1, k2)
	}
}

func TestKeyDiffersByField(t *testing.T) {
	day := time.Date(2025, 12, 9, 12, 0, 0, 0, time.UTC)
	base := Key("Apple Q4 Earnings", "tiingo", day)

	if got := Key("Apple Q3 Earnings", "tiingo", day); got == base {
		t.Fatalf("different headline must change the key")
	}
	if got := Key("Apple Q4 Earnings", "finnhub", day); got == base {
		t.Fatalf("different source must change the key")
	}
	if got := Key("Apple Q4 Earnings", "tiingo", day.AddDate(0, 0, 1)); got == base {
		t.Fatalf("different calendar day must change the key")
	}
}

func TestKeyShape(t *testing.T) {
	k := Key("headline", "tiingo", time.Now())
	if len(k) != 32 {
		t.Fatalf("key length = %d, want 32", len(k))
	}
	for _, r := range k {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("key %q contains non lowercase-hex rune %q", k, r)
		}
	}
}

func TestKeyFromIDIsDeterministic(t *testing.T) {
	k1 := KeyFromID("abc-123", "finnhub")
	k2 := KeyFromID("abc-123", "finnhub")
	if k1 != k2 {
		t.Fatalf("KeyFromID must be deterministic")
	}
	if len(k1) != 32 {
		t.Fatalf("key length = %d, want 32", len(k1))
	}
	if KeyFromID("abc-123", "tiingo") == k1 {
		t.Fatalf("source must participate in the key")
	}
}
