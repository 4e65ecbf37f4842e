package vkrg

import (
	"sort"

	vk "github.com/vulkan-go/vulkan"
)

// Keyframe is the recorded state of a physical resource at one scheduled
// pass. Every timeline starts with a synthetic keyframe at pass -1 holding
// the resource's initial state before anything touches it.
type Keyframe struct {
	// Pass is the physical pass index, -1 for the initial state.
	Pass int
	// Bind is the bind point used at this pass. Only valid if HasBind.
	Bind    BindPoint
	HasBind bool
	// Layout the image holds during and after this pass.
	Layout vk.ImageLayout
	// Flushed reports whether a barrier was emitted entering this pass.
	Flushed bool
	// PendingStages and PendingAccess are the stage and access masks
	// accumulated since the last flush, including this use.
	PendingStages vk.PipelineStageFlags
	PendingAccess vk.AccessFlags
}

// ResourceTimeline is the use history of one physical resource over the
// schedule, answering layout queries without re-simulating the graph.
// Timelines are immutable once baked and safe for concurrent readers.
type ResourceTimeline struct {
	frames []Keyframe
}

// Keyframes returns the timeline's keyframes in pass order. The returned
// slice must not be modified.
func (t *ResourceTimeline) Keyframes() []Keyframe {
	return t.frames
}

// at returns the index of the last keyframe at or before pass.
func (t *ResourceTimeline) at(pass int) int {
	// frames[0].Pass == -1, so this never returns -1 for pass >= -1.
	return sort.Search(len(t.frames), func(i int) bool {
		return t.frames[i].Pass > pass
	}) - 1
}

// LayoutForPass returns the layout the resource holds during the given
// physical pass: the layout of the nearest keyframe at or before it.
func (t *ResourceTimeline) LayoutForPass(pass int) vk.ImageLayout {
	return t.frames[t.at(pass)].Layout
}

// LayoutAfterPass returns the layout the resource holds once the given
// pass has retired: the layout of the nearest keyframe strictly after it.
// Past the last keyframe the lookup wraps to the first, because in
// steady-state rendering the same baked graph runs again next frame and
// the resource must re-enter it in its initial layout.
func (t *ResourceTimeline) LayoutAfterPass(pass int) vk.ImageLayout {
	i := t.at(pass) + 1
	if i >= len(t.frames) {
		i = 0
	}
	return t.frames[i].Layout
}

// keyframeFor returns the keyframe exactly at pass, if the resource is
// touched by it.
func (t *ResourceTimeline) keyframeFor(pass int) (Keyframe, bool) {
	i := t.at(pass)
	if i < 0 || t.frames[i].Pass != pass {
		return Keyframe{}, false
	}
	return t.frames[i], true
}
