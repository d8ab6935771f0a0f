package service

import (
	"sync"

	"github.com/persistorai/friendgraph/internal/models"
)

// maxFailedJobs bounds how many failed runs stay queryable.
const maxFailedJobs = 256

// jobTable tracks runs that have no stored snapshot: queued, running or
// failed. Entries are copies, so callers never share state with a running crawl.
type jobTable struct {
	mu     sync.RWMutex
	runs   map[string]models.CrawlRun
	failed []string // failed run ids, oldest first
}

func newJobTable() *jobTable {
	return &jobTable{runs: make(map[string]models.CrawlRun)}
}

// put stores a copy of run and returns another copy.
func (t *jobTable) put(run *models.CrawlRun) *models.CrawlRun {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, existed := t.runs[run.ID]
	t.runs[run.ID] = *run

	if run.Status == models.StatusFailed && (!existed || prev.Status != models.StatusFailed) {
		t.failed = append(t.failed, run.ID)

		for len(t.failed) > maxFailedJobs {
			delete(t.runs, t.failed[0])
			t.failed = t.failed[1:]
		}
	}

	out := *run

	return &out
}

func (t *jobTable) get(id string) (*models.CrawlRun, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	run, ok := t.runs[id]
	if !ok {
		return nil, false
	}

	return &run, true
}

func (t *jobTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.runs, id)

	for i, fid := range t.failed {
		if fid == id {
			t.failed = append(t.failed[:i], t.failed[i+1:]...)
			break
		}
	}
}

// counts returns the number of tracked runs per status.
func (t *jobTable) counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]int)
	for _, r := range t.runs {
		out[r.Status]++
	}

	return out
}
