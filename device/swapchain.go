package device

import (
	"cmp"
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// SwapchainSupport describes what the surface supports on a device.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Swapchain bundles the swapchain handle with everything derived from it.
type Swapchain struct {
	Handle vk.Swapchain

	Images     []vk.Image
	ImageViews []vk.ImageView
	Format     vk.Format
	Extent     vk.Extent2D
}

// QuerySwapchainSupport reads the surface capabilities, formats and present
// modes for a physical device. Failures here mean the surface itself is
// broken, which cannot be recovered from.
func (c *Context) QuerySwapchainSupport(device vk.PhysicalDevice) SwapchainSupport {
	details := SwapchainSupport{}

	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(device, c.Surface, &capabilities)
	if err := vk.Error(res); err != nil {
		panic(fmt.Sprintf("failed to query device surface capabilities: %s", err))
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	details.Capabilities = capabilities

	var formatCount uint32
	res = vk.GetPhysicalDeviceSurfaceFormats(device, c.Surface, &formatCount, nil)
	if err := vk.Error(res); err != nil {
		panic(fmt.Sprintf("failed to query device surface formats: %s", err))
	}

	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(device, c.Surface, &formatCount, formats)
		for _, format := range formats {
			format.Deref()
			details.Formats = append(details.Formats, format)
		}
	}

	var presentModeCount uint32
	res = vk.GetPhysicalDeviceSurfacePresentModes(
		device, c.Surface, &presentModeCount, nil,
	)
	if err := vk.Error(res); err != nil {
		panic(fmt.Sprintf("failed to query device surface present modes: %s", err))
	}

	if presentModeCount != 0 {
		presentModes := make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(
			device, c.Surface, &presentModeCount, presentModes,
		)
		details.PresentModes = presentModes
	}

	return details
}

// CreateSwapchain builds a swapchain for the current framebuffer size. The
// old swapchain, when not null, is chained into the create info so in-flight
// presentation can finish during recreation.
func (c *Context) CreateSwapchain(
	width, height int,
	old vk.Swapchain,
) (*Swapchain, error) {
	support := c.QuerySwapchainSupport(c.Physical)

	surfaceFormat := chooseSwapSurfaceFormat(support.Formats)
	presentMode := chooseSwapPresentMode(support.PresentModes)
	extent := chooseSwapExtent(support.Capabilities, width, height)

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 &&
		imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.Surface,
		MinImageCount:    imageCount,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageFormat:      surfaceFormat.Format,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	if c.Families.Graphics.Get() != c.Families.Present.Get() {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			c.Families.Graphics.Get(),
			c.Families.Present.Get(),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	res := vk.CreateSwapchain(c.Device, &createInfo, nil, &handle)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("failed to create swap chain: %w", err)
	}

	sc := &Swapchain{
		Handle: handle,
		Format: surfaceFormat.Format,
		Extent: extent,
	}

	var imagesCount uint32
	vk.GetSwapchainImages(c.Device, handle, &imagesCount, nil)

	images := make([]vk.Image, imagesCount)
	vk.GetSwapchainImages(c.Device, handle, &imagesCount, images)
	sc.Images = images

	for i, image := range images {
		view, err := c.CreateImageView(
			image, sc.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit),
		)
		if err != nil {
			sc.Destroy(c)
			return nil, fmt.Errorf("failed to create swap chain image view %d: %w", i, err)
		}
		sc.ImageViews = append(sc.ImageViews, view)
	}

	return sc, nil
}

// Destroy releases the image views and the swapchain handle. Swapchain
// images belong to the swapchain and are not destroyed separately.
func (s *Swapchain) Destroy(c *Context) {
	for _, view := range s.ImageViews {
		vk.DestroyImageView(c.Device, view, nil)
	}
	s.ImageViews = nil
	s.Images = nil

	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(c.Device, s.Handle, nil)
		s.Handle = vk.NullSwapchain
	}
}

func chooseSwapSurfaceFormat(availableFormats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == vk.FormatB8g8r8a8Srgb &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func chooseSwapPresentMode(available []vk.PresentMode) vk.PresentMode {
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}

	return vk.PresentModeFifo
}

func chooseSwapExtent(
	capabilities vk.SurfaceCapabilities,
	width, height int,
) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	actualExtent := vk.Extent2D{
		Width:  uint32(width),
		Height: uint32(height),
	}

	actualExtent.Width = clamp(
		actualExtent.Width,
		capabilities.MinImageExtent.Width,
		capabilities.MaxImageExtent.Width,
	)

	actualExtent.Height = clamp(
		actualExtent.Height,
		capabilities.MinImageExtent.Height,
		capabilities.MaxImageExtent.Height,
	)

	return actualExtent
}

func clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
