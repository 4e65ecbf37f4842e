package vkrg

import (
	"testing"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func bakeDeferred(t *testing.T) *BakedGraph {
	t.Helper()
	baked, err := Bake(mustFreeze(t, deferredBuilder()), testResolver())
	require.NoError(t, err)
	return baked
}

func findBarrier(barriers []ImageBarrier, resource int) (ImageBarrier, bool) {
	for _, b := range barriers {
		if b.Resource == resource {
			return b, true
		}
	}
	return ImageBarrier{}, false
}

func TestSyncFirstUseTransitionsFromUndefined(t *testing.T) {
	baked := bakeDeferred(t)
	ia, _ := baked.PhysicalIndex("albedo")

	b, ok := findBarrier(baked.Passes()[0].Barriers(), ia)
	require.True(t, ok, "first write needs a layout transition")
	require.Equal(t, vk.ImageLayoutUndefined, b.OldLayout)
	require.Equal(t, vk.ImageLayoutColorAttachmentOptimal, b.NewLayout)
	// Nothing ran before the first use; the source scope must still be a
	// valid stage mask for CmdPipelineBarrier.
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), b.SrcStage)
	require.Equal(t, vk.AccessFlags(0), b.SrcAccess)
}

func TestSyncReadAfterWriteBarrier(t *testing.T) {
	// Albedo is written as color by gbuffer, read as input by lighting.
	baked := bakeDeferred(t)
	ia, _ := baked.PhysicalIndex("albedo")

	b, ok := findBarrier(baked.Passes()[1].Barriers(), ia)
	require.True(t, ok, "read after write needs a barrier")
	require.Equal(t, vk.ImageLayoutColorAttachmentOptimal, b.OldLayout)
	require.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, b.NewLayout)

	// The source scope must cover the writer's whole pending access.
	writerAccess := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	require.Equal(t, writerAccess, b.SrcAccess&writerAccess)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), b.SrcStage)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), b.DstStage)
	require.Equal(t, vk.AccessFlags(vk.AccessInputAttachmentReadBit), b.DstAccess)
}

func TestSyncWriteAfterReadBarrier(t *testing.T) {
	// Slot shared by a (written p0, sampled p1) and b (written p2). The
	// write to b must wait for the read of a, with a layout change back to
	// color attachment.
	gb := NewGraphBuilder()
	gb.AddResource("a", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("b", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("mid", BackbufferSize(), FormatColorHDR, Transient)
	gb.AddResource("bb", BackbufferSize(), FormatBackbuffer, Transient)
	gb.NewPass("p0").Uses("a", ColorAttachment)
	gb.NewPass("p1").
		Uses("a", Sampler).
		Uses("mid", ColorAttachment)
	gb.NewPass("p2").
		Uses("mid", Sampler).
		Uses("b", ColorAttachment).
		Uses("bb", ColorAttachment)
	gb.SetBackBuffer("bb")

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ia, _ := baked.PhysicalIndex("a")
	ib, _ := baked.PhysicalIndex("b")
	require.Equal(t, ia, ib, "a and b should share a slot")

	b, ok := findBarrier(baked.Passes()[2].Barriers(), ib)
	require.True(t, ok)
	require.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, b.OldLayout)
	require.Equal(t, vk.ImageLayoutColorAttachmentOptimal, b.NewLayout)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), b.SrcStage)
	require.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit), b.SrcAccess)
}

func TestSyncRepeatedReadsAccumulateWithoutBarrier(t *testing.T) {
	// Two passes sample the same texture; the second read needs no
	// barrier, its scope just accumulates into the pending masks.
	gb := NewGraphBuilder()
	gb.AddResource("tex", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("mid", BackbufferSize(), FormatColorHDR, Transient)
	gb.AddResource("bb", BackbufferSize(), FormatBackbuffer, Transient)
	gb.NewPass("write").Uses("tex", ColorAttachment)
	gb.NewPass("readA").
		Uses("tex", Sampler).
		Uses("mid", ColorAttachment)
	gb.NewPass("readB").
		Uses("tex", Sampler).
		Uses("mid", Sampler).
		Uses("bb", ColorAttachment)
	gb.SetBackBuffer("bb")

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	it, _ := baked.PhysicalIndex("tex")

	_, ok := findBarrier(baked.Passes()[1].Barriers(), it)
	require.True(t, ok, "first read flushes the write")
	_, ok = findBarrier(baked.Passes()[2].Barriers(), it)
	require.False(t, ok, "second read must not emit a barrier")

	// The timeline still records the accumulated read scope.
	kf, ok := baked.Timeline(it).keyframeFor(2)
	require.True(t, ok)
	require.False(t, kf.Flushed)
	require.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), kf.PendingStages)
}

func TestSyncDepthAttachmentKeepsOwnLayout(t *testing.T) {
	baked := bakeDeferred(t)
	id, _ := baked.PhysicalIndex("depth")

	b, ok := findBarrier(baked.Passes()[0].Barriers(), id)
	require.True(t, ok)
	require.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, b.NewLayout)
	require.Equal(t,
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit|vk.PipelineStageLateFragmentTestsBit),
		b.DstStage)
}

func TestSyncExternalSampledInputNeedsNoBarrier(t *testing.T) {
	// Textures produced outside the graph arrive in their read layout.
	gb := deferredBuilder()
	gb.AddResource("envmap", FixedSize(512, 512, 1), FormatColorOptimal, PreserveAll)
	gb.NewPass("lighting").
		Uses("albedo", InputAttachment).
		Uses("envmap", Sampler).
		Uses("swapchain", ColorAttachment)

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ie, _ := baked.PhysicalIndex("envmap")
	for _, pass := range baked.Passes() {
		_, ok := findBarrier(pass.Barriers(), ie)
		require.False(t, ok, "sampled external input should not need a barrier in %q", pass.Tag)
	}
}

func TestSyncAliasedReadModifyWriteUsesGeneralLayout(t *testing.T) {
	baked, err := Bake(mustFreeze(t, rmwBuilder()), testResolver())
	require.NoError(t, err)

	ih, _ := baked.PhysicalIndex("hdr")
	b, ok := findBarrier(baked.Passes()[1].Barriers(), ih)
	require.True(t, ok)
	require.Equal(t, vk.ImageLayoutGeneral, b.NewLayout)

	// Both halves of the pair resolve to the same layout, so the pass
	// emits exactly one barrier for the slot.
	count := 0
	for _, barrier := range baked.Passes()[1].Barriers() {
		if barrier.Resource == ih {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestBakeIdempotent(t *testing.T) {
	frozen := mustFreeze(t, deferredBuilder())

	first, err := Bake(frozen, testResolver())
	require.NoError(t, err)
	second, err := Bake(frozen, testResolver())
	require.NoError(t, err)

	require.Equal(t, first.Schedule(), second.Schedule())
	require.Equal(t, first.Resources(), second.Resources())
	require.Equal(t, len(first.Passes()), len(second.Passes()))
	for i := range first.Passes() {
		require.Equal(t, first.Passes()[i].Bindings, second.Passes()[i].Bindings)
		require.Equal(t, first.Passes()[i].Barriers(), second.Passes()[i].Barriers())
	}
}
