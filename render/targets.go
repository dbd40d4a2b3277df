package render

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Paper-2/blackHoleSim/device"
)

// renderTargets holds everything that depends on the swapchain extent and
// has to be rebuilt on resize: the depth buffer and the framebuffers. The
// render pass itself survives recreation because the attachment formats do
// not change.
type renderTargets struct {
	depthFormat vk.Format
	depthImage  vk.Image
	depthMemory vk.DeviceMemory
	depthView   vk.ImageView

	framebuffers []vk.Framebuffer
}

func findDepthFormat(ctx *device.Context) (vk.Format, error) {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}

	for _, format := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(ctx.Physical, format, &props)
		props.Deref()

		features := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
		if props.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}

	return vk.FormatUndefined, fmt.Errorf("no supported depth attachment format")
}

func createRenderPass(
	ctx *device.Context,
	colorFormat vk.Format,
	depthFormat vk.Format,
) (vk.RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}

	depthAttachment := vk.AttachmentDescription{
		Format:         depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorAttachmentRef},
		PDepthStencilAttachment: &depthAttachmentRef,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass: vk.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) |
			vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 2,
		PAttachments: []vk.AttachmentDescription{
			colorAttachment,
			depthAttachment,
		},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(ctx.Device, &renderPassInfo, nil, &renderPass)
	if res != vk.Success {
		return vk.RenderPass(vk.NullHandle),
			fmt.Errorf("failed to create render pass: %w", vk.Error(res))
	}

	return renderPass, nil
}

// build creates the depth buffer and one framebuffer per swapchain image.
func (t *renderTargets) build(
	ctx *device.Context,
	swapchain *device.Swapchain,
	renderPass vk.RenderPass,
) error {
	var err error
	t.depthImage, t.depthMemory, err = ctx.CreateImage(
		swapchain.Extent.Width,
		swapchain.Extent.Height,
		t.depthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return fmt.Errorf("creating depth image: %w", err)
	}

	t.depthView, err = ctx.CreateImageView(
		t.depthImage,
		t.depthFormat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	)
	if err != nil {
		t.destroy(ctx)
		return fmt.Errorf("creating depth image view: %w", err)
	}

	t.framebuffers = make([]vk.Framebuffer, 0, len(swapchain.ImageViews))
	for _, view := range swapchain.ImageViews {
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: 2,
			PAttachments:    []vk.ImageView{view, t.depthView},
			Width:           swapchain.Extent.Width,
			Height:          swapchain.Extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		res := vk.CreateFramebuffer(ctx.Device, &framebufferInfo, nil, &framebuffer)
		if res != vk.Success {
			t.destroy(ctx)
			return fmt.Errorf("failed to create framebuffer: %w", vk.Error(res))
		}

		t.framebuffers = append(t.framebuffers, framebuffer)
	}

	return nil
}

func (t *renderTargets) destroy(ctx *device.Context) {
	for _, framebuffer := range t.framebuffers {
		vk.DestroyFramebuffer(ctx.Device, framebuffer, nil)
	}
	t.framebuffers = nil

	if t.depthView != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(ctx.Device, t.depthView, nil)
		t.depthView = vk.ImageView(vk.NullHandle)
	}
	if t.depthImage != vk.Image(vk.NullHandle) {
		vk.DestroyImage(ctx.Device, t.depthImage, nil)
		t.depthImage = vk.Image(vk.NullHandle)
	}
	if t.depthMemory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(ctx.Device, t.depthMemory, nil)
		t.depthMemory = vk.DeviceMemory(vk.NullHandle)
	}
}
