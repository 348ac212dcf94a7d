package stages

import (
	"errors"
	"fmt"

	"github.com/ifeis/server/internal/domain/errs"
)

// ErrCorruptSchedule is returned when the stored links of a stage do not
// form a single chain covering every item.
var ErrCorruptSchedule = errors.New("stage schedule is corrupt")

// Schedule is the in-memory form of a stage's linked list. It is built from
// stored items, edited, and then written back with Links.
type Schedule struct {
	stageID string
	head    string
	items   map[string]*Item
}

// BuildSchedule checks that the items form one chain starting at head, with
// no cycles, dangling pointers, or unreachable items.
func BuildSchedule(stageID, head string, items []Item) (*Schedule, error) {
	s := &Schedule{stageID: stageID, head: head, items: make(map[string]*Item, len(items))}
	for i := range items {
		item := items[i]
		if _, dup := s.items[item.ID]; dup {
			return nil, fmt.Errorf("%w: stage %s lists item %s twice", ErrCorruptSchedule, stageID, item.ID)
		}
		s.items[item.ID] = &item
	}

	seen := make(map[string]struct{}, len(items))
	for id := head; id != ""; {
		item, ok := s.items[id]
		if !ok {
			return nil, fmt.Errorf("%w: stage %s points at missing item %s", ErrCorruptSchedule, stageID, id)
		}
		if _, loop := seen[id]; loop {
			return nil, fmt.Errorf("%w: stage %s has a cycle at %s", ErrCorruptSchedule, stageID, id)
		}
		seen[id] = struct{}{}
		id = item.NextID
	}
	if len(seen) != len(s.items) {
		return nil, fmt.Errorf("%w: stage %s has %d unreachable items", ErrCorruptSchedule, stageID, len(s.items)-len(seen))
	}
	return s, nil
}

func (s *Schedule) Head() string { return s.head }

func (s *Schedule) Len() int { return len(s.items) }

func (s *Schedule) Contains(id string) bool {
	_, ok := s.items[id]
	return ok
}

func (s *Schedule) Item(id string) (Item, bool) {
	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Items returns the items in running order.
func (s *Schedule) Items() []Item {
	out := make([]Item, 0, len(s.items))
	for id := s.head; id != ""; id = s.items[id].NextID {
		out = append(out, *s.items[id])
	}
	return out
}

// InsertBetween places item after before and ahead of after. The two must be
// neighbours; "" or Sentinel stand for the stage, so ("", "") only fits an
// empty stage.
func (s *Schedule) InsertBetween(before, after string, item Item) error {
	before, after = normalize(before), normalize(after)
	if item.ID == "" {
		return errs.Invalid("Schedule items need an id.")
	}
	if s.Contains(item.ID) {
		return errs.Conflict("Item %s is already on this stage.", item.ID)
	}
	if before != "" && !s.Contains(before) {
		return errs.Invalid("Item %s is not on this stage.", before)
	}
	if after != "" && !s.Contains(after) {
		return errs.Invalid("Item %s is not on this stage.", after)
	}
	if s.next(before) != after {
		return ErrNotAdjacent
	}

	item.NextID = after
	s.items[item.ID] = &item
	if before == "" {
		s.head = item.ID
	} else {
		s.items[before].NextID = item.ID
	}
	return nil
}

// Remove unlinks id and joins its neighbours. It reports whether the item
// was on the stage.
func (s *Schedule) Remove(id string) bool {
	item, ok := s.items[id]
	if !ok {
		return false
	}
	if s.head == id {
		s.head = item.NextID
	} else {
		for _, other := range s.items {
			if other.NextID == id {
				other.NextID = item.NextID
				break
			}
		}
	}
	delete(s.items, id)
	return true
}

// Links returns the pointer of every remaining item in running order.
func (s *Schedule) Links() []Link {
	out := make([]Link, 0, len(s.items))
	for id := s.head; id != ""; id = s.items[id].NextID {
		out = append(out, Link{ID: id, NextID: s.items[id].NextID})
	}
	return out
}

func (s *Schedule) next(id string) string {
	if id == "" {
		return s.head
	}
	return s.items[id].NextID
}

func normalize(id string) string {
	if id == Sentinel {
		return ""
	}
	return id
}
