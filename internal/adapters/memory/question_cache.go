package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// QuestionCache is the process-wide in-memory question set.
//
// Each question lives behind an atomic pointer to an immutable snapshot, so
// readers never take a lock on the question itself. Writers serialize per
// question on the entry mutex and publish a fresh snapshot (copy-on-write).
// The map mutex is only taken for writing when questions are added.
type QuestionCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	journalMu sync.Mutex
	journal   []journaled
	seq       uint64

	now func() time.Time
}

type entry struct {
	mu   sync.Mutex
	snap atomic.Pointer[domain.Question]
}

type journaled struct {
	seq  uint64
	find domain.Find
}

// NewQuestionCache returns an empty cache.
func NewQuestionCache() *QuestionCache {
	return &QuestionCache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Load replaces the whole question set. It is meant for startup seeding.
func (c *QuestionCache) Load(questions []domain.Question) error {
	entries := make(map[string]*entry, len(questions))
	order := make([]string, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("load question cache: question with empty id")
		}
		if _, dup := entries[q.ID]; dup {
			return fmt.Errorf("load question cache: duplicate id %s", q.ID)
		}
		e := &entry{}
		snap := q.Clone()
		snap.FoundBy = union(nil, snap.FoundBy)
		e.snap.Store(&snap)
		entries[q.ID] = e
		order = append(order, q.ID)
	}

	c.mu.Lock()
	c.entries = entries
	c.order = order
	c.mu.Unlock()

	c.journalMu.Lock()
	c.journal = nil
	c.journalMu.Unlock()
	return nil
}

// Merge folds store-side state into the cache: unknown questions are added,
// descriptive fields are refreshed and FoundBy sets are unioned. FoundBy never
// shrinks. Merged finds are not journaled since they came from the store.
func (c *QuestionCache) Merge(questions []domain.Question) (added int) {
	for _, q := range questions {
		if q.ID == "" {
			continue
		}
		if e := c.lookup(q.ID); e != nil {
			e.mu.Lock()
			cur := e.snap.Load()
			next := q.Clone()
			next.FoundBy = union(cur.FoundBy, q.FoundBy)
			e.snap.Store(&next)
			e.mu.Unlock()
			continue
		}

		c.mu.Lock()
		if _, ok := c.entries[q.ID]; !ok {
			e := &entry{}
			snap := q.Clone()
			snap.FoundBy = union(nil, snap.FoundBy)
			e.snap.Store(&snap)
			c.entries[q.ID] = e
			c.order = append(c.order, q.ID)
			added++
		}
		c.mu.Unlock()
	}
	return added
}

func (c *QuestionCache) lookup(id string) *entry {
	c.mu.RLock()
	e := c.entries[id]
	c.mu.RUnlock()
	return e
}

// Get returns a copy of the question with the given id.
func (c *QuestionCache) Get(id string) (domain.Question, error) {
	e := c.lookup(id)
	if e == nil {
		return domain.Question{}, fmt.Errorf("question %s: %w", id, domain.ErrQuestionNotFound)
	}
	return e.snap.Load().Clone(), nil
}

// All returns copies of every question in load order. Each question is a
// consistent snapshot; the slice as a whole is not a cross-question snapshot.
func (c *QuestionCache) All() []domain.Question {
	c.mu.RLock()
	snaps := make([]*domain.Question, 0, len(c.order))
	for _, id := range c.order {
		snaps = append(snaps, c.entries[id].snap.Load())
	}
	c.mu.RUnlock()

	out := make([]domain.Question, len(snaps))
	for i, s := range snaps {
		out[i] = s.Clone()
	}
	return out
}

// Len reports the number of cached questions.
func (c *QuestionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// RecordFound adds teamID to the question's FoundBy set. Repeating the call for
// the same pair leaves the set unchanged and reports added == false.
func (c *QuestionCache) RecordFound(id, teamID string) (domain.Question, bool, error) {
	if teamID == "" {
		return domain.Question{}, false, fmt.Errorf("record found on %s: empty team id", id)
	}
	e := c.lookup(id)
	if e == nil {
		return domain.Question{}, false, fmt.Errorf("question %s: %w", id, domain.ErrQuestionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	if cur.FoundByTeam(teamID) {
		return cur.Clone(), false, nil
	}

	next := cur.Clone()
	next.FoundBy = append(next.FoundBy, teamID)
	e.snap.Store(&next)

	c.journalMu.Lock()
	c.seq++
	c.journal = append(c.journal, journaled{
		seq:  c.seq,
		find: domain.Find{QuestionID: id, TeamID: teamID, FoundAt: c.now().UTC()},
	})
	c.journalMu.Unlock()

	return next.Clone(), true, nil
}

// PendingFinds returns the credits recorded since the last Ack together with
// the sequence number to acknowledge once they are persisted.
func (c *QuestionCache) PendingFinds() ([]domain.Find, uint64) {
	c.journalMu.Lock()
	defer c.journalMu.Unlock()

	finds := make([]domain.Find, len(c.journal))
	for i, j := range c.journal {
		finds[i] = j.find
	}
	return finds, c.seq
}

// Ack drops journaled credits up to and including seq.
func (c *QuestionCache) Ack(seq uint64) {
	c.journalMu.Lock()
	defer c.journalMu.Unlock()

	i := 0
	for i < len(c.journal) && c.journal[i].seq <= seq {
		i++
	}
	c.journal = append(c.journal[:0:0], c.journal[i:]...)
}

func union(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, id := range list {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
