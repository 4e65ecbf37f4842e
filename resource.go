package vkrg

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Tag names a logical resource or pass within one graph. Tags only need to
// be unique within a single builder, two graphs can reuse the same names.
type Tag string

// ImageSize is the size class of a logical resource. The zero value is
// backbuffer sized; use FixedSize for an explicit extent. Resources can only
// share a physical image if their size classes are identical, and all color
// and input attachments of one pass must agree on a size class.
type ImageSize struct {
	Fixed  bool
	Extent vk.Extent3D
}

// BackbufferSize returns the size class that tracks the swapchain extent.
func BackbufferSize() ImageSize {
	return ImageSize{}
}

// FixedSize returns an explicit size class. Set unused dimensions to 0,
// not 1, so that distinct dimensionalities never land in the same class.
func FixedSize(width, height, depth uint32) ImageSize {
	return ImageSize{Fixed: true, Extent: vk.Extent3D{Width: width, Height: height, Depth: depth}}
}

func (s ImageSize) String() string {
	if !s.Fixed {
		return "backbuffer"
	}
	return fmt.Sprintf("%dx%dx%d", s.Extent.Width, s.Extent.Height, s.Extent.Depth)
}

// ImageFormat is a semantic format class, resolved to a concrete vk.Format
// at bake time by the SizeResolver. Keeping formats abstract until baking
// means a graph survives swapchain format changes untouched.
type ImageFormat int

const (
	// FormatBackbuffer inherits whatever format the swapchain uses.
	FormatBackbuffer ImageFormat = iota
	// FormatColorOptimal is a standard 8 bit per channel color target.
	FormatColorOptimal
	// FormatColorHDR is a float16 color target for HDR intermediates.
	FormatColorHDR
	// FormatDepthStencilOptimal is whatever depth format the device prefers.
	FormatDepthStencilOptimal
)

func (f ImageFormat) String() string {
	switch f {
	case FormatBackbuffer:
		return "Backbuffer"
	case FormatColorOptimal:
		return "ColorOptimal"
	case FormatColorHDR:
		return "ColorHDR"
	case FormatDepthStencilOptimal:
		return "DepthStencilOptimal"
	default:
		return fmt.Sprintf("ImageFormat(%d)", int(f))
	}
}

// Persistence governs whether a resource's contents must survive outside the
// passes that use it within one frame. It feeds two places: the aliaser
// widens lifetimes so preserved resources are never reused by another
// logical resource at the edges of the frame, and the render pass
// description maps it onto attachment load/store ops.
type Persistence int

const (
	// Transient contents exist only between first and last use.
	Transient Persistence = iota
	// PreserveInput must hold valid contents from the start of the frame,
	// e.g. accumulation targets read before first write.
	PreserveInput
	// PreserveOutput must remain valid after the frame so the next frame
	// can read it.
	PreserveOutput
	// ClearInput is cleared on first use, contents then transient.
	ClearInput
	// ClearInputPreserveOutput is cleared on first use and kept after the
	// frame.
	ClearInputPreserveOutput
	// PreserveAll is preserved on both ends of the frame.
	PreserveAll
)

func (p Persistence) String() string {
	switch p {
	case Transient:
		return "Transient"
	case PreserveInput:
		return "PreserveInput"
	case PreserveOutput:
		return "PreserveOutput"
	case ClearInput:
		return "ClearInput"
	case ClearInputPreserveOutput:
		return "ClearInputPreserveOutput"
	case PreserveAll:
		return "PreserveAll"
	default:
		return fmt.Sprintf("Persistence(%d)", int(p))
	}
}

// preservesInput reports whether contents must be valid before first use.
func (p Persistence) preservesInput() bool {
	return p == PreserveInput || p == PreserveAll
}

// preservesOutput reports whether contents must outlive the frame.
func (p Persistence) preservesOutput() bool {
	return p == PreserveOutput || p == ClearInputPreserveOutput || p == PreserveAll
}

// clearsInput reports whether contents are cleared on first use.
func (p Persistence) clearsInput() bool {
	return p == ClearInput || p == ClearInputPreserveOutput
}

// LogicalResource is one image declaration in a builder. Writer and readers
// are filled in during validation, not by the caller.
type LogicalResource struct {
	Tag         Tag
	Size        ImageSize
	Format      ImageFormat
	Persistence Persistence

	writtenIn Tag
	hasWriter bool
	readIn    []Tag
}

// Writer returns the pass writing this resource, if any. Only meaningful on
// resources held by a FrozenGraph.
func (r *LogicalResource) Writer() (Tag, bool) {
	return r.writtenIn, r.hasWriter
}

// Readers returns the passes reading this resource, in declaration order.
func (r *LogicalResource) Readers() []Tag {
	return r.readIn
}
