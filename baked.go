package vkrg

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ErrNoResolver is returned by Bake when no SizeResolver is supplied.
var ErrNoResolver = errors.New("vkrg: nil size resolver")

// PhysicalResource is one backing image slot. Several logical resources may
// alias it; they all share the resolved extent and format.
type PhysicalResource struct {
	Extent vk.Extent3D
	Format vk.Format
	// Usage accumulates the usage bits of every bind point that touches
	// the slot, ready for image creation.
	Usage vk.ImageUsageFlags
	// IsBackbuffer marks the slot holding the graph's final output.
	IsBackbuffer bool
	// Aliases lists the logical resources folded onto this slot, in the
	// order they take over the memory.
	Aliases []Tag
}

// ResourceBinding is one resource use within a physical pass.
type ResourceBinding struct {
	// Resource is the physical resource index.
	Resource int
	// Tag is the logical resource bound here.
	Tag Tag
	// Bind is the effective bind point, after any aliasing rewrite.
	Bind BindPoint
	// Layout the image must be in during the pass.
	Layout vk.ImageLayout
	// Persistence of the logical resource, for load/store op selection.
	Persistence Persistence
}

// PhysicalPass is one scheduled pass with resolved resource bindings.
type PhysicalPass struct {
	Tag      Tag
	Bindings []ResourceBinding
	barriers []ImageBarrier
}

// Barriers returns the image barriers to record immediately before this
// pass. The returned slice must not be modified.
func (p *PhysicalPass) Barriers() []ImageBarrier {
	return p.barriers
}

// BakedGraph is the compiled artifact: schedule, physical resources,
// per-pass bindings and barriers, and per-resource timelines. It is
// immutable and safe for unsynchronized concurrent reads. Re-baking after
// a swapchain or topology change produces a new BakedGraph; holders of the
// old one can keep using it until they switch over.
type BakedGraph struct {
	resources     []PhysicalResource
	passes        []PhysicalPass
	timelines     []ResourceTimeline
	physicalByTag map[Tag]int
	backBuffer    int
}

// Bake compiles a frozen graph: schedules the passes, packs logical
// resources onto physical slots, and synthesizes every barrier the
// schedule needs. Baking the same graph with the same resolver twice
// yields structurally identical output.
func Bake(f *FrozenGraph, resolver SizeResolver) (*BakedGraph, error) {
	if resolver == nil {
		return nil, ErrNoResolver
	}

	schedule := schedulePasses(f)
	al := aliasResources(f, schedule)
	assertWriteBeforeRead(f, schedule)
	barriers, timelines := simulate(f, schedule, al)

	bg := &BakedGraph{
		resources:     make([]PhysicalResource, len(al.slots)),
		passes:        make([]PhysicalPass, len(schedule)),
		timelines:     timelines,
		physicalByTag: al.physicalByTag,
		backBuffer:    al.physicalByTag[f.backBuffer],
	}

	for i, slot := range al.slots {
		bg.resources[i] = PhysicalResource{
			Extent:       resolveExtent(slot.key.size, resolver),
			Format:       resolveFormat(slot.key.format, resolver),
			IsBackbuffer: i == bg.backBuffer,
			Aliases:      slot.occupants,
		}
	}

	for passPhysical, passTag := range schedule {
		pass := f.passes[passTag]
		pp := PhysicalPass{
			Tag:      passTag,
			Bindings: make([]ResourceBinding, 0, len(pass.bindingOrder)),
			barriers: barriers[passPhysical],
		}
		for _, resTag := range pass.bindingOrder {
			bind := al.bindPointFor(pass, resTag)
			physical := al.physicalByTag[resTag]
			bg.resources[physical].Usage |= vk.ImageUsageFlags(bind.Usage())
			pp.Bindings = append(pp.Bindings, ResourceBinding{
				Resource:    physical,
				Tag:         resTag,
				Bind:        bind,
				Layout:      bind.OptimalLayout(),
				Persistence: f.resources[resTag].Persistence,
			})
		}
		bg.passes[passPhysical] = pp
	}

	return bg, nil
}

// assertWriteBeforeRead checks the scheduling invariant. Validated input
// cannot break it, so a violation is a compiler bug and panics.
func assertWriteBeforeRead(f *FrozenGraph, schedule []Tag) {
	index := make(map[Tag]int, len(schedule))
	for i, tag := range schedule {
		index[tag] = i
	}
	for _, resTag := range f.resourceOrder {
		res := f.resources[resTag]
		if !res.hasWriter {
			continue
		}
		w, scheduled := index[res.writtenIn]
		if !scheduled {
			continue
		}
		for _, reader := range res.readIn {
			if reader == res.writtenIn {
				continue
			}
			// Read-write bind points are continuations, not consumers;
			// their position is pinned by their own data dependencies.
			if f.passes[reader].bindings[resTag].CanWrite() {
				continue
			}
			if r, ok := index[reader]; ok && r <= w {
				panic(fmt.Sprintf("vkrg: internal: %q read in %q before written in %q", resTag, reader, res.writtenIn))
			}
		}
	}
}

// Passes returns the scheduled passes in execution order. The returned
// slice must not be modified.
func (bg *BakedGraph) Passes() []PhysicalPass { return bg.passes }

// Resources returns the physical resource slots. The returned slice must
// not be modified.
func (bg *BakedGraph) Resources() []PhysicalResource { return bg.resources }

// Schedule returns the pass tags in execution order.
func (bg *BakedGraph) Schedule() []Tag {
	out := make([]Tag, len(bg.passes))
	for i := range bg.passes {
		out[i] = bg.passes[i].Tag
	}
	return out
}

// PhysicalIndex returns the physical slot backing a logical resource.
func (bg *BakedGraph) PhysicalIndex(tag Tag) (int, bool) {
	i, ok := bg.physicalByTag[tag]
	return i, ok
}

// BackBuffer returns the physical index of the final output resource.
func (bg *BakedGraph) BackBuffer() int { return bg.backBuffer }

// Timeline returns the use timeline of a physical resource.
func (bg *BakedGraph) Timeline(resource int) *ResourceTimeline {
	return &bg.timelines[resource]
}

// LayoutForPass returns the layout a physical resource holds during the
// given pass.
func (bg *BakedGraph) LayoutForPass(resource, pass int) vk.ImageLayout {
	return bg.timelines[resource].LayoutForPass(pass)
}

// LayoutAfterPass returns the layout a physical resource holds once the
// given pass has retired, wrapping to its initial layout after its last
// use.
func (bg *BakedGraph) LayoutAfterPass(resource, pass int) vk.ImageLayout {
	return bg.timelines[resource].LayoutAfterPass(pass)
}

// SyncAroundPass returns the barriers to record before and after the given
// pass. The before set is the pass's own synthesized barriers. The after
// set is non-empty only for the final user of a resource that must return
// to its initial layout for the next frame; intermediate handoffs are
// already covered by the before set of the consuming pass.
func (bg *BakedGraph) SyncAroundPass(pass int) (before, after []ImageBarrier) {
	before = bg.passes[pass].barriers

	for _, binding := range bg.passes[pass].Bindings {
		t := &bg.timelines[binding.Resource]
		kf, ok := t.keyframeFor(pass)
		if !ok {
			continue
		}
		last := t.frames[len(t.frames)-1]
		if last.Pass != pass {
			continue // resource is used again later this frame
		}
		initial := t.frames[0].Layout
		if initial == vk.ImageLayoutUndefined || kf.Layout == initial {
			// Undefined means the next frame may discard the contents, so
			// there is nothing to transition back to.
			continue
		}
		after = append(after, ImageBarrier{
			Resource:  binding.Resource,
			SrcStage:  kf.PendingStages,
			SrcAccess: kf.PendingAccess,
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstAccess: 0,
			OldLayout: kf.Layout,
			NewLayout: initial,
		})
	}
	return before, after
}
