package vkrg

import (
	vk "github.com/vulkan-go/vulkan"
)

// RenderPassDescription is everything the rendering layer needs to create
// a vk.RenderPass and framebuffer for one physical pass: attachment
// descriptions with load/store ops derived from persistence, attachment
// references split by role, and subpass dependencies derived from the
// synthesized barriers.
//
// Layout transitions are handled by the barriers from SyncAroundPass, so
// attachments enter and leave the render pass in their bound layout; only
// the back buffer's final use transitions to the present layout.
type RenderPassDescription struct {
	Attachments []vk.AttachmentDescription
	// AttachmentResources maps each attachment slot to its physical
	// resource index.
	AttachmentResources []int
	ColorRefs           []vk.AttachmentReference
	InputRefs           []vk.AttachmentReference
	DepthRef            *vk.AttachmentReference
	Dependencies        []vk.SubpassDependency
}

// RenderPassDescription builds the attachment list for one physical pass.
// Sampler bindings are not render pass attachments and are skipped; they
// are bound through descriptor sets by the caller.
func (bg *BakedGraph) RenderPassDescription(pass int) RenderPassDescription {
	var desc RenderPassDescription
	pp := &bg.passes[pass]

	for _, binding := range pp.Bindings {
		if !binding.Bind.isAttachment() {
			continue
		}

		res := &bg.resources[binding.Resource]
		t := &bg.timelines[binding.Resource]
		frames := t.Keyframes()
		// frames[0] is the initial state, frames[1] the first use.
		firstUse := len(frames) > 1 && frames[1].Pass == pass
		lastUse := frames[len(frames)-1].Pass == pass

		finalLayout := binding.Layout
		if res.IsBackbuffer && binding.Bind == ColorAttachment && lastUse {
			finalLayout = vk.ImageLayoutPresentSrc
		}

		attachment := uint32(len(desc.Attachments))
		desc.Attachments = append(desc.Attachments, vk.AttachmentDescription{
			Format:         res.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOpFor(binding.Persistence, firstUse),
			StoreOp:        storeOpFor(binding.Persistence, lastUse, res.IsBackbuffer),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  binding.Layout,
			FinalLayout:    finalLayout,
		})
		desc.AttachmentResources = append(desc.AttachmentResources, binding.Resource)

		ref := vk.AttachmentReference{Attachment: attachment, Layout: binding.Layout}
		switch binding.Bind {
		case ColorAttachment, AliasedColorAttachment:
			desc.ColorRefs = append(desc.ColorRefs, ref)
		case InputAttachment, AliasedInputAttachment:
			desc.InputRefs = append(desc.InputRefs, ref)
		case DepthAttachment:
			r := ref
			desc.DepthRef = &r
		}
	}

	for _, b := range pp.barriers {
		desc.Dependencies = append(desc.Dependencies, vk.SubpassDependency{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  b.SrcStage,
			SrcAccessMask: b.SrcAccess,
			DstStageMask:  b.DstStage,
			DstAccessMask: b.DstAccess,
		})
	}

	return desc
}

// loadOpFor selects the attachment load op. Contents survive between
// passes within the frame, so anything but the first use loads. At first
// use the persistence decides: preserved inputs load last frame's
// contents, clearing persistences clear, and a plain transient starts
// with undefined contents the pass is expected to overwrite.
func loadOpFor(p Persistence, firstUse bool) vk.AttachmentLoadOp {
	switch {
	case !firstUse || p.preservesInput():
		return vk.AttachmentLoadOpLoad
	case p.clearsInput():
		return vk.AttachmentLoadOpClear
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

// storeOpFor selects the attachment store op. The last use may drop the
// contents unless they outlive the frame or feed presentation.
func storeOpFor(p Persistence, lastUse, backbuffer bool) vk.AttachmentStoreOp {
	if lastUse && !p.preservesOutput() && !backbuffer {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}
