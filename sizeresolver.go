package vkrg

import (
	vk "github.com/vulkan-go/vulkan"
)

// SizeResolver resolves the backbuffer-relative size and format classes to
// concrete values at bake time. It is owned by whatever manages the
// swapchain; the compiler only asks, it never touches the surface itself.
// A graph is re-baked with a fresh resolver whenever the swapchain changes.
type SizeResolver interface {
	// BackbufferExtent is the current swapchain extent.
	BackbufferExtent() vk.Extent3D
	// BackbufferFormat is the current swapchain surface format.
	BackbufferFormat() vk.Format
	// DepthFormat is the depth format the device prefers.
	DepthFormat() vk.Format
}

// FixedSizeResolver is a SizeResolver with constant answers. Useful for
// offscreen rendering and tests; real applications implement SizeResolver
// on their swapchain wrapper.
type FixedSizeResolver struct {
	Extent vk.Extent3D
	Format vk.Format
	Depth  vk.Format
}

func (r FixedSizeResolver) BackbufferExtent() vk.Extent3D { return r.Extent }
func (r FixedSizeResolver) BackbufferFormat() vk.Format   { return r.Format }
func (r FixedSizeResolver) DepthFormat() vk.Format        { return r.Depth }

func resolveFormat(f ImageFormat, r SizeResolver) vk.Format {
	switch f {
	case FormatBackbuffer:
		return r.BackbufferFormat()
	case FormatColorOptimal:
		return vk.FormatR8g8b8a8Unorm
	case FormatColorHDR:
		return vk.FormatR16g16b16a16Sfloat
	case FormatDepthStencilOptimal:
		return r.DepthFormat()
	default:
		return vk.FormatUndefined
	}
}

func resolveExtent(s ImageSize, r SizeResolver) vk.Extent3D {
	if s.Fixed {
		return s.Extent
	}
	return r.BackbufferExtent()
}
