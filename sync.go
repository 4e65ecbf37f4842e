package vkrg

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ImageBarrier is one synchronization point on a physical resource: what
// must finish (source scope), what may then start (destination scope), and
// the layout transition in between. Feed the fields straight into a
// vk.ImageMemoryBarrier and CmdPipelineBarrier.
type ImageBarrier struct {
	Resource  int
	SrcStage  vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstStage  vk.PipelineStageFlags
	DstAccess vk.AccessFlags
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
}

// simState tracks one physical resource during the schedule walk.
type simState struct {
	layout        vk.ImageLayout
	pendingStages vk.PipelineStageFlags
	pendingAccess vk.AccessFlags
	writePending  bool
	readPending   bool
}

// simulate walks the schedule once over the physical resources and works
// out where barriers are needed. A barrier is required for a read while a
// write is pending, a write while a read is pending, or any layout change.
// When no barrier is needed the use just accumulates into the pending
// masks, so the eventual barrier's source scope covers every unflushed use.
//
// Returns the barriers to record before each pass, and one timeline per
// physical resource for later layout queries.
func simulate(f *FrozenGraph, schedule []Tag, al *aliasing) ([][]ImageBarrier, []ResourceTimeline) {
	states := make([]simState, len(al.slots))
	timelines := make([]ResourceTimeline, len(al.slots))
	for i := range states {
		// Nothing has executed yet, so the source scope of a first-use
		// barrier is top of pipe. CmdPipelineBarrier rejects a zero source
		// stage mask.
		states[i] = simState{
			layout:        initialLayout(f, &al.slots[i]),
			pendingStages: vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		}
		timelines[i].frames = append(timelines[i].frames, Keyframe{
			Pass:          -1,
			Layout:        states[i].layout,
			PendingStages: states[i].pendingStages,
		})
	}

	barriers := make([][]ImageBarrier, len(schedule))

	for passPhysical, passTag := range schedule {
		pass := f.passes[passTag]
		// A slot can surface twice in one pass through an aliased
		// read-modify-write pair. The second binding is the same use of
		// the same memory, so it only widens the scope; the intra-pass
		// ordering is a subpass self-dependency, not a barrier.
		touched := make(map[int]bool)

		for _, resTag := range pass.bindingOrder {
			bind := al.bindPointFor(pass, resTag)
			physical, ok := al.physicalByTag[resTag]
			if !ok {
				// A scheduled pass binding an unmapped resource means the
				// aliaser broke; validated input cannot cause this.
				panic(fmt.Sprintf("vkrg: internal: no physical resource for %q in pass %q", resTag, passTag))
			}
			st := &states[physical]

			needBarrier := !touched[physical] &&
				((bind.CanRead() && st.writePending) ||
					(bind.CanWrite() && st.readPending) ||
					(bind.OptimalLayout() != st.layout))
			touched[physical] = true

			flushed := false
			if needBarrier {
				barriers[passPhysical] = append(barriers[passPhysical], ImageBarrier{
					Resource:  physical,
					SrcStage:  st.pendingStages,
					SrcAccess: st.pendingAccess,
					DstStage:  bind.Stages(),
					DstAccess: bind.Access(),
					OldLayout: st.layout,
					NewLayout: bind.OptimalLayout(),
				})
				st.layout = bind.OptimalLayout()
				st.pendingStages = 0
				st.pendingAccess = 0
				st.writePending = false
				st.readPending = false
				flushed = true
			}

			if bind.CanWrite() {
				st.writePending = true
			}
			if bind.CanRead() {
				st.readPending = true
			}
			st.pendingStages |= bind.Stages()
			st.pendingAccess |= bind.Access()

			recordKeyframe(&timelines[physical], Keyframe{
				Pass:          passPhysical,
				Bind:          bind,
				HasBind:       true,
				Layout:        st.layout,
				Flushed:       flushed,
				PendingStages: st.pendingStages,
				PendingAccess: st.pendingAccess,
			})
		}
	}

	return barriers, timelines
}

// initialLayout is the state a physical resource is assumed to be in before
// its first use. Images born inside the graph start undefined. Images
// produced outside the graph and only read here (sampled inputs) are
// expected to arrive already in their read layout.
func initialLayout(f *FrozenGraph, slot *physicalSlot) vk.ImageLayout {
	if len(slot.occupants) == 1 && !f.resources[slot.occupants[0]].hasWriter {
		return vk.ImageLayoutShaderReadOnlyOptimal
	}
	return vk.ImageLayoutUndefined
}

// recordKeyframe appends a keyframe, merging with a previous one for the
// same pass. One pass can touch a physical resource through two logical
// tags when a read-modify-write pair was aliased; the merged keyframe keeps
// the flush flag and the latest state.
func recordKeyframe(t *ResourceTimeline, kf Keyframe) {
	if n := len(t.frames); n > 0 && t.frames[n-1].Pass == kf.Pass {
		kf.Flushed = kf.Flushed || t.frames[n-1].Flushed
		t.frames[n-1] = kf
		return
	}
	t.frames = append(t.frames, kf)
}
