package vkrg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// disjointBuilder makes two transient color resources with disjoint
// lifetimes [0,0] and [1,1], linked through a depth resource so both passes
// are reachable.
func disjointBuilder() *GraphBuilder {
	gb := NewGraphBuilder()
	gb.AddResource("a", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("b", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("link", BackbufferSize(), FormatDepthStencilOptimal, Transient)
	gb.AddResource("bb", BackbufferSize(), FormatBackbuffer, Transient)
	gb.NewPass("first").
		Uses("a", ColorAttachment).
		Uses("link", ColorAttachment)
	gb.NewPass("second").
		Uses("link", Sampler).
		Uses("b", ColorAttachment).
		Uses("bb", ColorAttachment)
	gb.SetBackBuffer("bb")
	return gb
}

func TestAliasDisjointLifetimesShareSlot(t *testing.T) {
	frozen := mustFreeze(t, disjointBuilder())
	baked, err := Bake(frozen, testResolver())
	require.NoError(t, err)

	ia, _ := baked.PhysicalIndex("a")
	ib, _ := baked.PhysicalIndex("b")
	require.Equal(t, ia, ib, "disjoint same-class resources should alias")
	require.Equal(t, []Tag{"a", "b"}, baked.Resources()[ia].Aliases)
}

func TestAliasOverlappingLifetimesGetDistinctSlots(t *testing.T) {
	gb := disjointBuilder()
	// Extend a's lifetime into the second pass; now [0,1] overlaps [1,1].
	gb.NewPass("second").
		Uses("a", InputAttachment).
		Uses("b", ColorAttachment).
		Uses("bb", ColorAttachment)

	frozen := mustFreeze(t, gb)
	baked, err := Bake(frozen, testResolver())
	require.NoError(t, err)

	ia, _ := baked.PhysicalIndex("a")
	ib, _ := baked.PhysicalIndex("b")
	require.NotEqual(t, ia, ib, "overlapping lifetimes must not alias")
}

func TestAliasDifferentFormatsNeverShare(t *testing.T) {
	gb := disjointBuilder()
	gb.AddResource("b", BackbufferSize(), FormatColorHDR, Transient)

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ia, _ := baked.PhysicalIndex("a")
	ib, _ := baked.PhysicalIndex("b")
	require.NotEqual(t, ia, ib)
}

func TestAliasPreserveOutputBlocksReuse(t *testing.T) {
	gb := disjointBuilder()
	// a must stay valid after the frame, so b cannot take its memory even
	// though their natural lifetimes are disjoint.
	gb.AddResource("a", BackbufferSize(), FormatColorOptimal, PreserveOutput)

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ia, _ := baked.PhysicalIndex("a")
	ib, _ := baked.PhysicalIndex("b")
	require.NotEqual(t, ia, ib)
}

func TestAliasPreserveInputBlocksReuse(t *testing.T) {
	// b is preserved from the start of the frame, so its lifetime reaches
	// back to pass 0 and collides with a.
	gb := disjointBuilder()
	gb.AddResource("b", BackbufferSize(), FormatColorOptimal, PreserveInput)

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ia, _ := baked.PhysicalIndex("a")
	ib, _ := baked.PhysicalIndex("b")
	require.NotEqual(t, ia, ib)
}

// rmwBuilder builds a tonemap pass reading "hdr" as input attachment while
// writing "ldr" as color, with the pair whitelisted for aliasing.
func rmwBuilder() *GraphBuilder {
	gb := NewGraphBuilder()
	gb.AddResource("hdr", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("ldr", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("bb", BackbufferSize(), FormatBackbuffer, Transient)
	gb.NewPass("scene").Uses("hdr", ColorAttachment)
	gb.NewPass("tonemap").
		Uses("hdr", InputAttachment).
		Uses("ldr", ColorAttachment).
		AllowReadModifyWrite("hdr", "ldr")
	gb.NewPass("ui").
		Uses("ldr", InputAttachment).
		Uses("bb", ColorAttachment)
	gb.SetBackBuffer("bb")
	return gb
}

func TestAliasReadModifyWriteSharesSlot(t *testing.T) {
	baked, err := Bake(mustFreeze(t, rmwBuilder()), testResolver())
	require.NoError(t, err)

	ih, _ := baked.PhysicalIndex("hdr")
	il, _ := baked.PhysicalIndex("ldr")
	require.Equal(t, ih, il, "whitelisted pair with touching lifetimes should alias")

	// The sharing pass must see the rewritten bind points.
	var tonemap *PhysicalPass
	for i := range baked.Passes() {
		if baked.Passes()[i].Tag == "tonemap" {
			tonemap = &baked.Passes()[i]
		}
	}
	require.NotNil(t, tonemap)
	binds := make(map[Tag]BindPoint)
	for _, b := range tonemap.Bindings {
		binds[b.Tag] = b.Bind
	}
	require.Equal(t, AliasedInputAttachment, binds["hdr"])
	require.Equal(t, AliasedColorAttachment, binds["ldr"])
}

func TestAliasWithoutWhitelistKeepsSlotsApart(t *testing.T) {
	gb := rmwBuilder()
	// Same topology but no whitelist entry: hdr's lifetime [0,1] overlaps
	// ldr's [1,2], so they must not alias.
	gb.NewPass("tonemap").
		Uses("hdr", InputAttachment).
		Uses("ldr", ColorAttachment)

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ih, _ := baked.PhysicalIndex("hdr")
	il, _ := baked.PhysicalIndex("ldr")
	require.NotEqual(t, ih, il)
}

func TestAliasLimitTwoPerSlot(t *testing.T) {
	// Three same-class resources with pairwise disjoint lifetimes. Only
	// two may share a slot, the third opens a new one.
	gb := NewGraphBuilder()
	gb.AddResource("r0", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("r1", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("r2", BackbufferSize(), FormatColorOptimal, Transient)
	gb.AddResource("l0", BackbufferSize(), FormatDepthStencilOptimal, Transient)
	gb.AddResource("l1", BackbufferSize(), FormatColorHDR, Transient)
	gb.AddResource("bb", BackbufferSize(), FormatBackbuffer, Transient)
	gb.NewPass("p0").
		Uses("r0", ColorAttachment).
		Uses("l0", ColorAttachment)
	gb.NewPass("p1").
		Uses("l0", Sampler).
		Uses("r1", ColorAttachment).
		Uses("l1", ColorAttachment)
	gb.NewPass("p2").
		Uses("l1", Sampler).
		Uses("r2", ColorAttachment).
		Uses("bb", ColorAttachment)
	gb.SetBackBuffer("bb")

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	i0, _ := baked.PhysicalIndex("r0")
	i1, _ := baked.PhysicalIndex("r1")
	i2, _ := baked.PhysicalIndex("r2")
	require.Equal(t, i0, i1, "first two disjoint resources share")
	require.NotEqual(t, i0, i2, "slot is full at two occupants")
}

func TestAliasExternalInputDedicatedSlot(t *testing.T) {
	// A texture sampled but never written inside the graph gets its own
	// slot and is never aliased.
	gb := deferredBuilder()
	gb.AddResource("envmap", BackbufferSize(), FormatColorOptimal, PreserveAll)
	gb.NewPass("lighting").
		Uses("albedo", InputAttachment).
		Uses("envmap", Sampler).
		Uses("swapchain", ColorAttachment)

	baked, err := Bake(mustFreeze(t, gb), testResolver())
	require.NoError(t, err)

	ie, ok := baked.PhysicalIndex("envmap")
	require.True(t, ok)
	require.Equal(t, []Tag{"envmap"}, baked.Resources()[ie].Aliases)
}
