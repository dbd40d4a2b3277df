package device

import (
	"fmt"
	"image"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer couples a Vulkan buffer with its backing memory.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

// Destroy releases the buffer and frees its memory.
func (b *Buffer) Destroy(c *Context) {
	if b.Handle != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(c.Device, b.Handle, nil)
		b.Handle = vk.Buffer(vk.NullHandle)
	}
	if b.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(c.Device, b.Memory, nil)
		b.Memory = vk.DeviceMemory(vk.NullHandle)
	}
}

// CreateBuffer allocates a buffer of the given size, bound to memory with
// the requested properties.
func (c *Context) CreateBuffer(
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	properties vk.MemoryPropertyFlags,
) (Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	res := vk.CreateBuffer(c.Device, &bufferInfo, nil, &buffer)
	if res != vk.Success {
		return Buffer{}, fmt.Errorf("failed to create buffer: %w", vk.Error(res))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(c.Device, buffer, &memRequirements)
	memRequirements.Deref()

	memTypeIndex, err := c.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyBuffer(c.Device, buffer, nil)
		return Buffer{}, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	var bufferMemory vk.DeviceMemory
	res = vk.AllocateMemory(c.Device, &allocInfo, nil, &bufferMemory)
	if res != vk.Success {
		vk.DestroyBuffer(c.Device, buffer, nil)
		return Buffer{}, fmt.Errorf("failed to allocate buffer memory: %s", vk.Error(res))
	}

	res = vk.BindBufferMemory(c.Device, buffer, bufferMemory, 0)
	if res != vk.Success {
		vk.DestroyBuffer(c.Device, buffer, nil)
		vk.FreeMemory(c.Device, bufferMemory, nil)
		return Buffer{}, fmt.Errorf("failed to bind buffer memory: %w", vk.Error(res))
	}

	return Buffer{Handle: buffer, Memory: bufferMemory, Size: size}, nil
}

// CreateDeviceLocalBuffer uploads data into a new device-local buffer
// through a staging buffer.
func (c *Context) CreateDeviceLocalBuffer(
	data []byte,
	usage vk.BufferUsageFlags,
) (Buffer, error) {
	bufferSize := vk.DeviceSize(len(data))

	staging, err := c.CreateBuffer(
		bufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return Buffer{}, fmt.Errorf("creating the staging buffer: %w", err)
	}
	defer staging.Destroy(c)

	var pData unsafe.Pointer
	vk.MapMemory(c.Device, staging.Memory, 0, bufferSize, 0, &pData)
	vk.Memcopy(pData, data)
	vk.UnmapMemory(c.Device, staging.Memory)

	local, err := c.CreateBuffer(
		bufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)|usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return Buffer{}, fmt.Errorf("creating the device local buffer: %w", err)
	}

	if err := c.CopyBuffer(staging.Handle, local.Handle, bufferSize); err != nil {
		local.Destroy(c)
		return Buffer{}, fmt.Errorf("failed to copy staging buffer: %w", err)
	}

	return local, nil
}

// CopyBuffer records and submits a buffer to buffer copy on the graphics
// queue and waits for it to finish.
func (c *Context) CopyBuffer(
	srcBuffer vk.Buffer,
	dstBuffer vk.Buffer,
	size vk.DeviceSize,
) error {
	commandBuffer, err := c.beginSingleTimeCommands()
	if err != nil {
		return fmt.Errorf("failed to begin single time commands: %w", err)
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}

	vk.CmdCopyBuffer(commandBuffer, srcBuffer, dstBuffer, 1, []vk.BufferCopy{copyRegion})

	return c.endSingleTimeCommands(commandBuffer)
}

func (c *Context) beginSingleTimeCommands() (vk.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        c.CommandPool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(c.Device, &allocInfo, commandBuffers)
	if res != vk.Success {
		return nil, fmt.Errorf("failed to allocate command buffer: %w", vk.Error(res))
	}
	commandBuffer := commandBuffers[0]

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	vk.BeginCommandBuffer(commandBuffer, &beginInfo)

	return commandBuffer, nil
}

func (c *Context) endSingleTimeCommands(commandBuffer vk.CommandBuffer) error {
	commandBuffers := []vk.CommandBuffer{commandBuffer}

	defer func() {
		vk.FreeCommandBuffers(c.Device, c.CommandPool, 1, commandBuffers)
	}()

	res := vk.EndCommandBuffer(commandBuffer)
	if res != vk.Success {
		return fmt.Errorf("failed end command buffer: %w", vk.Error(res))
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}

	res = vk.QueueSubmit(c.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)
	if res != vk.Success {
		return fmt.Errorf("failed to submit to graphics queue: %w", vk.Error(res))
	}

	res = vk.QueueWaitIdle(c.GraphicsQueue)
	if res != vk.Success {
		return fmt.Errorf("failed to wait on graphics queue idle: %w", vk.Error(res))
	}

	return nil
}

// FindMemoryType selects a memory type matching the filter and properties.
func (c *Context) FindMemoryType(
	typeFilter uint32,
	properties vk.MemoryPropertyFlags,
) (uint32, error) {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.Physical, &memProperties)
	memProperties.Deref()

	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memType := memProperties.MemoryTypes[i]
		memType.Deref()

		if typeFilter&(1<<i) == 0 {
			continue
		}

		if memType.PropertyFlags&properties != properties {
			continue
		}

		return i, nil
	}

	return 0, fmt.Errorf("failed to find suitable memory type")
}

// CreateImage allocates a 2D image bound to memory with the requested
// properties.
func (c *Context) CreateImage(
	width uint32,
	height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	properties vk.MemoryPropertyFlags,
) (vk.Image, vk.DeviceMemory, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var image vk.Image
	res := vk.CreateImage(c.Device, &imageInfo, nil, &image)
	if res != vk.Success {
		return nil, nil, fmt.Errorf("failed to create an image: %w", vk.Error(res))
	}

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(c.Device, image, &memRequirements)
	memRequirements.Deref()

	memTypeIndex, err := c.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyImage(c.Device, image, nil)
		return nil, nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memTypeIndex,
	}

	var imageMemory vk.DeviceMemory
	res = vk.AllocateMemory(c.Device, &allocInfo, nil, &imageMemory)
	if res != vk.Success {
		vk.DestroyImage(c.Device, image, nil)
		return nil, nil, fmt.Errorf("failed to allocate image memory: %s", vk.Error(res))
	}

	res = vk.BindImageMemory(c.Device, image, imageMemory, 0)
	if res != vk.Success {
		vk.DestroyImage(c.Device, image, nil)
		vk.FreeMemory(c.Device, imageMemory, nil)
		return nil, nil, fmt.Errorf("failed to bind image memory: %w", vk.Error(res))
	}

	return image, imageMemory, nil
}

// CreateImageView makes a 2D view over an image.
func (c *Context) CreateImageView(
	image vk.Image,
	format vk.Format,
	aspectFlags vk.ImageAspectFlags,
) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var imageView vk.ImageView
	res := vk.CreateImageView(c.Device, &createInfo, nil, &imageView)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("failed to create image view: %w", err)
	}

	return imageView, nil
}

func (c *Context) transitionImageLayout(
	image vk.Image,
	oldLayout vk.ImageLayout,
	newLayout vk.ImageLayout,
) error {
	commandBuffer, err := c.beginSingleTimeCommands()
	if err != nil {
		return fmt.Errorf("failed to begin single time commands: %w", err)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var (
		sourceStage      vk.PipelineStageFlags
		destinationStage vk.PipelineStageFlags
	)

	if oldLayout == vk.ImageLayoutUndefined &&
		newLayout == vk.ImageLayoutTransferDstOptimal {

		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)

		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)

	} else if oldLayout == vk.ImageLayoutTransferDstOptimal &&
		newLayout == vk.ImageLayoutShaderReadOnlyOptimal {

		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)

		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)

	} else {
		return fmt.Errorf("unsupported layout transition")
	}

	vk.CmdPipelineBarrier(
		commandBuffer,
		sourceStage, destinationStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)

	return c.endSingleTimeCommands(commandBuffer)
}

func (c *Context) copyBufferToImage(
	buffer vk.Buffer,
	image vk.Image,
	width, height uint32,
) error {
	commandBuffer, err := c.beginSingleTimeCommands()
	if err != nil {
		return fmt.Errorf("failed to begin single time command buffer: %w", err)
	}

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,

		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},

		ImageOffset: vk.Offset3D{
			X: 0, Y: 0, Z: 0,
		},

		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}

	vk.CmdCopyBufferToImage(
		commandBuffer,
		buffer,
		image,
		vk.ImageLayoutTransferDstOptimal,
		1,
		[]vk.BufferImageCopy{region},
	)

	return c.endSingleTimeCommands(commandBuffer)
}

// Texture is a sampled 2D image with its view and sampler.
type Texture struct {
	Image   vk.Image
	Memory  vk.DeviceMemory
	View    vk.ImageView
	Sampler vk.Sampler
}

// Destroy releases the sampler, view, image and memory.
func (t *Texture) Destroy(c *Context) {
	if t.Sampler != vk.Sampler(vk.NullHandle) {
		vk.DestroySampler(c.Device, t.Sampler, nil)
		t.Sampler = vk.Sampler(vk.NullHandle)
	}
	if t.View != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(c.Device, t.View, nil)
		t.View = vk.ImageView(vk.NullHandle)
	}
	if t.Image != vk.Image(vk.NullHandle) {
		vk.DestroyImage(c.Device, t.Image, nil)
		t.Image = vk.Image(vk.NullHandle)
	}
	if t.Memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(c.Device, t.Memory, nil)
		t.Memory = vk.DeviceMemory(vk.NullHandle)
	}
}

// CreateTexture uploads an RGBA image into a sampled device-local texture
// with the given sampler address mode (repeat for the tiling noise, clamp
// would suit cube maps).
func (c *Context) CreateTexture(
	img *image.RGBA,
	addressMode vk.SamplerAddressMode,
) (*Texture, error) {
	size := img.Bounds().Size()
	texWidth := uint32(size.X)
	texHeight := uint32(size.Y)
	imgSize := vk.DeviceSize(texWidth * texHeight * 4)

	staging, err := c.CreateBuffer(
		imgSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture staging buffer: %w", err)
	}
	defer staging.Destroy(c)

	var pData unsafe.Pointer
	vk.MapMemory(c.Device, staging.Memory, 0, imgSize, 0, &pData)
	vk.Memcopy(pData, img.Pix)
	vk.UnmapMemory(c.Device, staging.Memory)

	textureImage, textureMemory, err := c.CreateImage(
		texWidth,
		texHeight,
		vk.FormatR8g8b8a8Srgb,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture image: %w", err)
	}

	tex := &Texture{Image: textureImage, Memory: textureMemory}

	err = c.transitionImageLayout(
		tex.Image,
		vk.ImageLayoutUndefined,
		vk.ImageLayoutTransferDstOptimal,
	)
	if err != nil {
		tex.Destroy(c)
		return nil, fmt.Errorf("transition image layout: %w", err)
	}

	if err := c.copyBufferToImage(staging.Handle, tex.Image, texWidth, texHeight); err != nil {
		tex.Destroy(c)
		return nil, fmt.Errorf("copying buffer to image: %w", err)
	}

	err = c.transitionImageLayout(
		tex.Image,
		vk.ImageLayoutTransferDstOptimal,
		vk.ImageLayoutShaderReadOnlyOptimal,
	)
	if err != nil {
		tex.Destroy(c)
		return nil, fmt.Errorf("transitioning to read only optimal layout: %w", err)
	}

	view, err := c.CreateImageView(
		tex.Image,
		vk.FormatR8g8b8a8Srgb,
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
	)
	if err != nil {
		tex.Destroy(c)
		return nil, err
	}
	tex.View = view

	sampler, err := c.createSampler(addressMode)
	if err != nil {
		tex.Destroy(c)
		return nil, err
	}
	tex.Sampler = sampler

	return tex, nil
}

func (c *Context) createSampler(addressMode vk.SamplerAddressMode) (vk.Sampler, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(c.Physical, &properties)
	properties.Deref()
	properties.Limits.Deref()

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           properties.Limits.MaxSamplerAnisotropy,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}

	var sampler vk.Sampler
	res := vk.CreateSampler(c.Device, &samplerInfo, nil, &sampler)
	if res != vk.Success {
		return nil, fmt.Errorf("failed to create sampler: %w", vk.Error(res))
	}

	return sampler, nil
}
