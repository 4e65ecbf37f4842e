package vkrg

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// BindPoint is the role a resource plays in a pass. Every synchronization
// decision in the compiler derives from the table below: the layout the
// image must be in, the pipeline stages that touch it, the access masks
// those stages use, and whether the bind point reads and/or writes.
type BindPoint int

const (
	// ColorAttachment is a render target written by the fragment output.
	ColorAttachment BindPoint = iota
	// InputAttachment is read per-fragment inside the same render area.
	InputAttachment
	// DepthAttachment is read and written by the fragment depth tests.
	DepthAttachment
	// Sampler is a texture sampled freely in the fragment shader.
	Sampler

	// AliasedColorAttachment and AliasedInputAttachment are what a
	// whitelisted read-modify-write pair is rewritten to when the aliaser
	// folds both tags onto one physical image. They use the GENERAL layout
	// because the same image is read and written within the pass. Uses
	// rejects them; they only ever appear in baked bindings.
	AliasedColorAttachment
	AliasedInputAttachment
)

type bindPointTraits struct {
	layout   vk.ImageLayout
	stages   vk.PipelineStageFlags
	access   vk.AccessFlags
	canRead  bool
	canWrite bool
	// attachment marks bind points that take part in a render pass (and
	// therefore in the per-pass size class check).
	attachment bool
	usage      vk.ImageUsageFlagBits
}

var bindPointTable = [...]bindPointTraits{
	ColorAttachment: {
		layout:     vk.ImageLayoutColorAttachmentOptimal,
		stages:     vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		access:     vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		canWrite:   true,
		attachment: true,
		usage:      vk.ImageUsageColorAttachmentBit,
	},
	InputAttachment: {
		layout:     vk.ImageLayoutShaderReadOnlyOptimal,
		stages:     vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		access:     vk.AccessFlags(vk.AccessInputAttachmentReadBit),
		canRead:    true,
		attachment: true,
		usage:      vk.ImageUsageInputAttachmentBit,
	},
	DepthAttachment: {
		layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		stages:     vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		access:     vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		canRead:    true,
		canWrite:   true,
		attachment: true,
		usage:      vk.ImageUsageDepthStencilAttachmentBit,
	},
	Sampler: {
		layout:  vk.ImageLayoutShaderReadOnlyOptimal,
		stages:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		access:  vk.AccessFlags(vk.AccessShaderReadBit),
		canRead: true,
		usage:   vk.ImageUsageSampledBit,
	},
	AliasedColorAttachment: {
		layout:     vk.ImageLayoutGeneral,
		stages:     vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		access:     vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		canWrite:   true,
		attachment: true,
		usage:      vk.ImageUsageColorAttachmentBit,
	},
	AliasedInputAttachment: {
		layout:     vk.ImageLayoutGeneral,
		stages:     vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		access:     vk.AccessFlags(vk.AccessInputAttachmentReadBit),
		canRead:    true,
		attachment: true,
		usage:      vk.ImageUsageInputAttachmentBit,
	},
}

// OptimalLayout is the image layout this bind point requires.
func (b BindPoint) OptimalLayout() vk.ImageLayout { return bindPointTable[b].layout }

// Stages is the pipeline stage mask touching the resource.
func (b BindPoint) Stages() vk.PipelineStageFlags { return bindPointTable[b].stages }

// Access is the access mask used by those stages.
func (b BindPoint) Access() vk.AccessFlags { return bindPointTable[b].access }

// CanRead reports whether this bind point reads the resource.
func (b BindPoint) CanRead() bool { return bindPointTable[b].canRead }

// CanWrite reports whether this bind point writes the resource.
func (b BindPoint) CanWrite() bool { return bindPointTable[b].canWrite }

// Usage is the image usage bit implied by this bind point.
func (b BindPoint) Usage() vk.ImageUsageFlagBits { return bindPointTable[b].usage }

func (b BindPoint) isAttachment() bool { return bindPointTable[b].attachment }

// reserved marks bind points that only the aliaser may assign.
func (b BindPoint) reserved() bool {
	return b == AliasedColorAttachment || b == AliasedInputAttachment
}

func (b BindPoint) String() string {
	switch b {
	case ColorAttachment:
		return "ColorAttachment"
	case InputAttachment:
		return "InputAttachment"
	case DepthAttachment:
		return "DepthAttachment"
	case Sampler:
		return "Sampler"
	case AliasedColorAttachment:
		return "AliasedColorAttachment"
	case AliasedInputAttachment:
		return "AliasedInputAttachment"
	default:
		return fmt.Sprintf("BindPoint(%d)", int(b))
	}
}
