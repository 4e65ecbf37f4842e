package vkrg

import (
	"math"
	"sort"
)

// lifetime is the inclusive range of physical pass indices during which a
// logical resource holds live contents. end == lifetimeInf marks resources
// whose contents must outlive the frame.
type lifetime struct {
	start, end int
}

const lifetimeInf = math.MaxInt

func (l lifetime) disjointAfter(other lifetime) bool {
	return other.end != lifetimeInf && other.end < l.start
}

// bucketKey groups resources that could share a physical image: identical
// size class and identical format class.
type bucketKey struct {
	size   ImageSize
	format ImageFormat
}

// physicalSlot is one physical image in the making, with the logical
// resources folded onto it in time order.
type physicalSlot struct {
	key       bucketKey
	occupants []Tag
	last      lifetime
}

// aliasing is the logical-to-physical mapping produced by the packer, plus
// the bind point rewrites for read-modify-write passes.
type aliasing struct {
	slots         []physicalSlot
	physicalByTag map[Tag]int
	// overrides[pass][resource] replaces the declared bind point when a
	// whitelisted read-modify-write pair was folded onto one slot.
	overrides map[Tag]map[Tag]BindPoint
}

// aliasLimit caps how many logical resources may share one slot. The
// packing handles exactly one handoff per slot (the previous occupant's
// last pass feeding the next occupant's first); deeper chains are untested
// territory and refused rather than silently mispacked.
const aliasLimit = 2

// aliasResources packs logical resources onto physical slots. Resources
// sharing a size and format class are candidates; within a bucket, a
// candidate joins an existing slot when it legally continues a
// read-modify-write pair or when its lifetime starts after the slot's last
// occupant ends. The packing is greedy first-fit, not globally optimal.
//
// Resources read inside the graph but written outside it (sampled inputs)
// are never aliased; each gets a dedicated slot. Resources not used by any
// scheduled pass get no slot at all.
func aliasResources(f *FrozenGraph, schedule []Tag) *aliasing {
	passIndex := make(map[Tag]int, len(schedule))
	for i, tag := range schedule {
		passIndex[tag] = i
	}

	out := &aliasing{
		physicalByTag: make(map[Tag]int, len(f.resourceOrder)),
		overrides:     make(map[Tag]map[Tag]BindPoint),
	}

	// Bucket candidates by (size, format), preserving declaration order so
	// packing is deterministic. Only resources produced inside the graph
	// can alias; their contents have a well defined birth pass.
	buckets := make(map[bucketKey][]Tag)
	var bucketOrder []bucketKey
	var external []Tag
	for _, resTag := range f.resourceOrder {
		res := f.resources[resTag]
		if _, used := resourceLifetime(res, passIndex); !used {
			continue
		}
		if !res.hasWriter {
			external = append(external, resTag)
			continue
		}
		key := bucketKey{size: res.Size, format: res.Format}
		if _, ok := buckets[key]; !ok {
			bucketOrder = append(bucketOrder, key)
		}
		buckets[key] = append(buckets[key], resTag)
	}

	for _, key := range bucketOrder {
		candidates := buckets[key]

		if len(candidates) == 1 {
			out.assign(candidates[0], physicalSlot{key: key})
			continue
		}

		lifetimes := make(map[Tag]lifetime, len(candidates))
		for _, tag := range candidates {
			lt, _ := resourceLifetime(f.resources[tag], passIndex)
			lifetimes[tag] = lt
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return lifetimes[candidates[i]].start < lifetimes[candidates[j]].start
		})

		var slots []int // indices into out.slots belonging to this bucket
		for _, tag := range candidates {
			lt := lifetimes[tag]
			placed := false
			for _, si := range slots {
				slot := &out.slots[si]
				if len(slot.occupants) >= aliasLimit {
					continue
				}
				lastTag := slot.occupants[len(slot.occupants)-1]
				if f.rmwContinuation(schedule, lastTag, slot.last, tag, lt) {
					sharing := schedule[lt.start]
					out.override(sharing, lastTag, AliasedInputAttachment)
					out.override(sharing, tag, AliasedColorAttachment)
					out.join(tag, si, lt)
					placed = true
					break
				}
				if lt.disjointAfter(slot.last) {
					out.join(tag, si, lt)
					placed = true
					break
				}
			}
			if !placed {
				si := out.assign(tag, physicalSlot{key: key})
				out.slots[si].last = lt
				slots = append(slots, si)
			}
		}
	}

	// Dedicated slots for externally produced inputs.
	for _, resTag := range external {
		res := f.resources[resTag]
		out.assign(resTag, physicalSlot{key: bucketKey{size: res.Size, format: res.Format}})
	}

	return out
}

// resourceLifetime computes the natural lifetime of a resource over the
// schedule and widens it per the persistence policy: preserved inputs must
// look correct from the start of the frame, preserved outputs must stay
// valid forever as far as this frame is concerned.
func resourceLifetime(res *LogicalResource, passIndex map[Tag]int) (lifetime, bool) {
	first, last := lifetimeInf, -1
	touch := func(passTag Tag) {
		i, ok := passIndex[passTag]
		if !ok {
			return // pass was unreachable
		}
		if i < first {
			first = i
		}
		if i > last {
			last = i
		}
	}
	if res.hasWriter {
		touch(res.writtenIn)
	}
	for _, r := range res.readIn {
		touch(r)
	}
	if last < 0 {
		return lifetime{}, false
	}

	lt := lifetime{start: first, end: last}
	if res.Persistence.preservesInput() {
		lt.start = 0
	}
	if res.Persistence.preservesOutput() {
		lt.end = lifetimeInf
	}
	return lt, true
}

// rmwContinuation reports whether cand may take over prev's slot at the
// very pass where prev is last read: their lifetimes must touch at that
// pass, cand must be born there, and the pass must whitelist exactly this
// (input, color) pair.
func (f *FrozenGraph) rmwContinuation(schedule []Tag, prevTag Tag, prev lifetime, candTag Tag, cand lifetime) bool {
	if prev.end == lifetimeInf || prev.end != cand.start {
		return false
	}
	sharing := schedule[cand.start]
	if f.resources[candTag].writtenIn != sharing {
		return false
	}
	for _, pair := range f.passes[sharing].rmw {
		if pair.input == prevTag && pair.color == candTag {
			return true
		}
	}
	return false
}

func (a *aliasing) assign(tag Tag, slot physicalSlot) int {
	slot.occupants = append(slot.occupants, tag)
	a.slots = append(a.slots, slot)
	si := len(a.slots) - 1
	a.physicalByTag[tag] = si
	return si
}

func (a *aliasing) join(tag Tag, si int, lt lifetime) {
	a.slots[si].occupants = append(a.slots[si].occupants, tag)
	a.slots[si].last = lt
	a.physicalByTag[tag] = si
}

func (a *aliasing) override(pass, res Tag, bind BindPoint) {
	m, ok := a.overrides[pass]
	if !ok {
		m = make(map[Tag]BindPoint)
		a.overrides[pass] = m
	}
	m[res] = bind
}

// bindPointFor returns the effective bind point of a resource in a pass,
// with aliasing rewrites applied.
func (a *aliasing) bindPointFor(pass *frozenPass, res Tag) BindPoint {
	if m, ok := a.overrides[pass.tag]; ok {
		if bp, ok := m[res]; ok {
			return bp
		}
	}
	return pass.bindings[res]
}
