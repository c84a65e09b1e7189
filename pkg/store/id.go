package store

import "time"

// sequence issues increasing integer ids for one entity type. Ids are never reused.
type sequence struct {
	last int64
}

func (s *sequence) next() int64 {
	s.last++
	return s.last
}

// ticker hands out strictly increasing timestamps so that creation order is
// total even when the wall clock does not advance between calls.
type ticker struct {
	now  func() time.Time
	last time.Time
}

func (t *ticker) tick() time.Time {
	ts := t.now().UTC()
	if !ts.After(t.last) {
		ts = t.last.Add(time.Microsecond)
	}
	t.last = ts
	return ts
}
