package vkrg

// schedulePasses produces the physical pass order: a total order over the
// passes reachable from the back buffer in which every resource is written
// before it is read.
//
// The walk is a lazy depth-first traversal backwards from the pass that
// writes the back buffer. Whenever a pass resurfaces in the work list it is
// pulled out of its old slot and re-inserted at the current position, so a
// pass feeding several consumers ends up immediately before its earliest
// consumer once the order is reversed. The walk terminates because
// validation rejected cyclic graphs: on an acyclic graph every pop only
// pushes strict predecessors, and the chain of predecessors is finite.
//
// Passes unreachable from the back buffer do not contribute to the frame
// and are left out of the schedule with a warning.
func schedulePasses(f *FrozenGraph) []Tag {
	backWriter := f.resources[f.backBuffer].writtenIn

	work := []Tag{backWriter}
	set := newScheduleSet(len(f.passes))

	for len(work) > 0 {
		passTag := work[len(work)-1]
		work = work[:len(work)-1]

		// A pass that is needed again moves to the current position so it
		// runs just before the consumer that popped it.
		set.moveToEnd(passTag)

		for _, resTag := range f.passes[passTag].bindingOrder {
			res := f.resources[resTag]
			if res.hasWriter && res.writtenIn != passTag {
				work = append(work, res.writtenIn)
			}
		}
	}

	// The first pass scheduled must run last.
	schedule := set.reversed()

	if len(schedule) < len(f.passOrder) {
		for _, passTag := range f.passOrder {
			if !set.contains(passTag) {
				logger().Warn("pass unreachable from back buffer, dropped", "pass", passTag)
			}
		}
	}

	return schedule
}

// scheduleSet is an insertion-ordered set of pass tags where re-inserting
// an element moves it to the end.
type scheduleSet struct {
	items []Tag
	pos   map[Tag]int
}

func newScheduleSet(capacity int) *scheduleSet {
	return &scheduleSet{
		items: make([]Tag, 0, capacity),
		pos:   make(map[Tag]int, capacity),
	}
}

func (s *scheduleSet) moveToEnd(tag Tag) {
	if i, ok := s.pos[tag]; ok {
		s.items = append(s.items[:i], s.items[i+1:]...)
		for j := i; j < len(s.items); j++ {
			s.pos[s.items[j]] = j
		}
	}
	s.pos[tag] = len(s.items)
	s.items = append(s.items, tag)
}

func (s *scheduleSet) contains(tag Tag) bool {
	_, ok := s.pos[tag]
	return ok
}

func (s *scheduleSet) reversed() []Tag {
	out := make([]Tag, len(s.items))
	for i, tag := range s.items {
		out[len(s.items)-1-i] = tag
	}
	return out
}
