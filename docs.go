/*
Package vkrg compiles declarative render graphs into a form that can be fed
directly to Vulkan. The caller describes logical images and the passes which
read and write them, and the compiler figures out the rest: in which order the
passes must run, which logical images can share a physical image, and exactly
which layout transitions and pipeline barriers are needed between passes so
the GPU never observes a hazard.

Vulkan hands all of this responsibility to the application. Every image has a
layout that must match how it is being used, every write must be made visible
to subsequent reads with the right stage and access masks, and transient
attachments waste memory if each one gets its own allocation. Doing this by
hand for anything beyond a toy renderer is error prone, and validation layers
only catch the mistakes you happen to hit. Describing the frame as a graph and
compiling it once is the standard way out.

Usage is in three phases. First build the graph:

	gb := vkrg.NewGraphBuilder()
	gb.AddResource("albedo", vkrg.BackbufferSize(), vkrg.FormatColorOptimal, vkrg.Transient)
	gb.AddResource("depth", vkrg.BackbufferSize(), vkrg.FormatDepthStencilOptimal, vkrg.Transient)
	gb.AddResource("swapchain", vkrg.BackbufferSize(), vkrg.FormatBackbuffer, vkrg.Transient)

	gb.NewPass("gbuffer").
		Uses("albedo", vkrg.ColorAttachment).
		Uses("depth", vkrg.DepthAttachment)
	gb.NewPass("lighting").
		Uses("albedo", vkrg.InputAttachment).
		Uses("depth", vkrg.DepthAttachment).
		Uses("swapchain", vkrg.ColorAttachment)
	gb.SetBackBuffer("swapchain")

Then validate and bake, with a SizeResolver supplying the swapchain extent
and format (normally owned by whatever manages the window):

	frozen, err := gb.FinalizeAndValidate()
	baked, err := vkrg.Bake(frozen, resolver)

The baked graph is immutable and safe for concurrent readers. The rendering
layer walks its physical passes to create render passes and record barriers,
using LayoutForPass, SyncAroundPass and RenderPassDescription. When the
swapchain is resized or the graph topology changes, bake again from the
builder; baked graphs are never patched in place.

The compiler performs no Vulkan API calls at all. Device selection, image
allocation, render pass and pipeline creation, and command recording stay in
the application, which consumes the baked description.
*/
package vkrg
