package workflow

import (
	"sync"
	"testing"
)

// fakeIntakePoster models the intake posting path: the per-document advisory
// lock serializes workers and the processed flag makes a replay a no-op.
type fakeIntakePoster struct {
	mu        sync.Mutex
	muByDoc   map[string]*sync.Mutex
	processed map[string]bool
	payables  int
	postings  int
}

func newFakeIntakePoster() *fakeIntakePoster {
	return &fakeIntakePoster{
		muByDoc:   map[string]*sync.Mutex{},
		processed: map[string]bool{},
	}
}

func (p *fakeIntakePoster) post(pharmacyId string, intakeId int, documentNumber string) bool {
	key := pharmacyId + "|" + documentNumber

	p.mu.Lock()
	dm := p.muByDoc[key]
	if dm == nil {
		dm = &sync.Mutex{}
		p.muByDoc[key] = dm
	}
	p.mu.Unlock()

	dm.Lock()
	defer dm.Unlock()

	if p.processed[key] {
		return false
	}
	p.processed[key] = true

	p.mu.Lock()
	p.postings++
	p.payables++
	p.mu.Unlock()
	return true
}

func TestIntake_DuplicateProcessPostsOnce(t *testing.T) {
	p := newFakeIntakePoster()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.post("ph-1", 42, "FAT-2025-0001")
		}()
	}
	wg.Wait()

	if p.postings != 1 {
		t.Fatalf("expected exactly 1 posting, got %d", p.postings)
	}
	if p.payables != 1 {
		t.Fatalf("expected exactly 1 payable, got %d", p.payables)
	}
}

func TestIntake_DistinctDocumentsPostIndependently(t *testing.T) {
	for run := 0; run < 100; run++ {
		p := newFakeIntakePoster()
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.post("ph-1", 1, "FAT-A")
				p.post("ph-1", 2, "FAT-B")
				p.post("ph-1", 1, "FAT-A") // replay
			}()
		}
		wg.Wait()

		if p.postings != 2 {
			t.Fatalf("run=%d expected 2 postings (FAT-A, FAT-B), got %d", run, p.postings)
		}
	}
}
