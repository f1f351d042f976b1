package artemis

import (
	"sync"
	"testing"
)

func TestDedupKey_Fingerprint(t *testing.T) {
	a := DedupKey{Kind: ErrorKindNotice, Message: "undefined", File: "a.go", Line: 10}
	b := a
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal keys produced different fingerprints")
	}
	if len(a.Fingerprint()) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(a.Fingerprint()))
	}

	variants := []DedupKey{
		{Kind: ErrorKindWarning, Message: "undefined", File: "a.go", Line: 10},
		{Kind: ErrorKindNotice, Message: "undefined!", File: "a.go", Line: 10},
		{Kind: ErrorKindNotice, Message: "undefined", File: "b.go", Line: 10},
		{Kind: ErrorKindNotice, Message: "undefined", File: "a.go", Line: 11},
		// Field boundaries must not blur together.
		{Kind: ErrorKindNotice, Message: "undefineda.go", File: "", Line: 10},
	}
	for _, v := range variants {
		if v.Fingerprint() == a.Fingerprint() {
			t.Errorf("fingerprint collision between %+v and %+v", a, v)
		}
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	key := DedupKey{Kind: ErrorKindWarning, Message: "m", File: "f.go", Line: 1}

	if !d.IsNovel(key) {
		t.Fatal("fresh key should be novel")
	}
	d.Record(key)
	if d.IsNovel(key) {
		t.Error("recorded key should not be novel")
	}

	other := key
	other.Line = 2
	if !d.Observe(other) {
		t.Error("different line should be novel")
	}
	if d.Observe(other) {
		t.Error("second Observe should report duplicate")
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
}

func TestDeduplicator_ConcurrentObserve(t *testing.T) {
	d := NewDeduplicator()
	key := DedupKey{Kind: ErrorKindNotice, Message: "race", File: "f.go", Line: 7}

	var wg sync.WaitGroup
	var mu sync.Mutex
	novel := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Observe(key) {
				mu.Lock()
				novel++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if novel != 1 {
		t.Errorf("novel observations = %d, want 1", novel)
	}
}
