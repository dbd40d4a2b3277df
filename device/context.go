// Package device owns the explicit Vulkan state up to the logical device:
// instance, surface, physical device selection, queues and the command pool,
// plus the allocation helpers every pipeline builds on.
package device

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/Paper-2/blackHoleSim/queues"
	"github.com/Paper-2/blackHoleSim/unsafer"
)

// Context is the Vulkan device context shared by every pipeline. It is
// created on the main thread and handed to the render worker; after that
// only the worker touches the queues.
type Context struct {
	Instance vk.Instance
	Surface  vk.Surface

	// Physical is the physical device selected by scoring; Device is the
	// logical device created on top of it.
	Physical vk.PhysicalDevice
	Device   vk.Device

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	Families      queues.FamilyIndices

	CommandPool vk.CommandPool

	window *glfw.Window
	log    *zap.Logger

	enableValidationLayers bool
	validationLayers       []string
	deviceExtensions       []string
}

// New initializes Vulkan for the given window and builds the full device
// context. With debug set the Khronos validation layers are required and
// enabled.
func New(window *glfw.Window, log *zap.Logger, debug bool) (*Context, error) {
	c := &Context{
		window:                 window,
		log:                    log,
		enableValidationLayers: debug,
		validationLayers: []string{
			"VK_LAYER_KHRONOS_validation\x00",
		},
		deviceExtensions: []string{
			vk.KhrSwapchainExtensionName + "\x00",
		},
		Physical: vk.PhysicalDevice(vk.NullHandle),
		Device:   vk.Device(vk.NullHandle),
		Surface:  vk.NullSurface,
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("failed to init Vulkan Go: %w", err)
	}

	if err := c.createInstance(); err != nil {
		return nil, fmt.Errorf("createInstance: %w", err)
	}
	if err := c.createSurface(); err != nil {
		return nil, fmt.Errorf("createSurface: %w", err)
	}
	if err := c.pickPhysicalDevice(); err != nil {
		return nil, fmt.Errorf("pickPhysicalDevice: %w", err)
	}
	if err := c.createLogicalDevice(); err != nil {
		return nil, fmt.Errorf("createLogicalDevice: %w", err)
	}
	if err := c.createCommandPool(); err != nil {
		return nil, fmt.Errorf("createCommandPool: %w", err)
	}

	return c, nil
}

// Destroy tears the context down in reverse creation order. The caller
// must have destroyed everything created on top of the device first.
func (c *Context) Destroy() {
	if c.CommandPool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(c.Device, c.CommandPool, nil)
	}
	if c.Device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(c.Device, nil)
	}
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance, c.Surface, nil)
	}
	vk.DestroyInstance(c.Instance, nil)
}

// WaitIdle blocks until the logical device has finished all queued work.
func (c *Context) WaitIdle() {
	vk.DeviceWaitIdle(c.Device)
}

func (c *Context) createInstance() error {
	if c.enableValidationLayers && !c.checkValidationSupport() {
		return fmt.Errorf("validation layers requested but not available")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   "Black Hole\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	glfwExtensions := glfw.GetCurrentContext().GetRequiredInstanceExtensions()
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(glfwExtensions)),
		PpEnabledExtensionNames: glfwExtensions,
	}

	if c.enableValidationLayers {
		createInfo.EnabledLayerCount = uint32(len(c.validationLayers))
		createInfo.PpEnabledLayerNames = c.validationLayers
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return fmt.Errorf("failed to create Vulkan instance: %w", err)
	}

	c.Instance = instance
	return nil
}

func (c *Context) createSurface() error {
	surfacePtr, err := c.window.CreateWindowSurface(c.Instance, nil)
	if err != nil {
		return fmt.Errorf("cannot create surface within GLFW window: %w", err)
	}

	c.Surface = vk.SurfaceFromPointer(surfacePtr)
	return nil
}

func (c *Context) pickPhysicalDevice() error {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(c.Instance, &deviceCount, nil))
	if err != nil {
		return fmt.Errorf("failed to get the number of physical devices: %w", err)
	}
	if deviceCount == 0 {
		return fmt.Errorf("failed to find GPUs with Vulkan support")
	}

	pDevices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(c.Instance, &deviceCount, pDevices))
	if err != nil {
		return fmt.Errorf("failed to enumerate the physical devices: %w", err)
	}

	var (
		selectedDevice vk.PhysicalDevice
		score          uint32
	)

	for _, device := range pDevices {
		deviceScore := c.getDeviceScore(device)

		if deviceScore > score {
			selectedDevice = device
			score = deviceScore
		}
	}

	if selectedDevice == vk.PhysicalDevice(vk.NullHandle) {
		return fmt.Errorf("failed to find suitable physical devices")
	}

	c.Physical = selectedDevice
	c.Families = c.findQueueFamilies(selectedDevice)
	return nil
}

// getDeviceScore returns how suitable this device is for the program.
// Bigger is better; zero means the device cannot be used.
func (c *Context) getDeviceScore(device vk.PhysicalDevice) uint32 {
	var (
		deviceScore uint32
		properties  vk.PhysicalDeviceProperties
	)

	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
		deviceScore += 1000
	} else {
		deviceScore++
	}

	if !c.isDeviceSuitable(device) {
		deviceScore = 0
	}

	c.log.Debug("available device",
		zap.String("name", vk.ToString(properties.DeviceName[:])),
		zap.Uint32("score", deviceScore),
	)

	return deviceScore
}

func (c *Context) isDeviceSuitable(device vk.PhysicalDevice) bool {
	indices := c.findQueueFamilies(device)
	extensionsSupported := c.checkDeviceExtensionSupport(device)

	swapChainAdequate := false
	if extensionsSupported {
		support := c.QuerySwapchainSupport(device)
		swapChainAdequate = len(support.Formats) > 0 && len(support.PresentModes) > 0
	}

	return indices.IsComplete() && extensionsSupported && swapChainAdequate
}

// findQueueFamilies returns the queue family indices needed by the program.
func (c *Context) findQueueFamilies(device vk.PhysicalDevice) queues.FamilyIndices {
	indices := queues.FamilyIndices{}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)

	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i, family := range queueFamilies {
		family.Deref()

		if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics.Set(uint32(i))
		}

		var hasPresent vk.Bool32
		err := vk.Error(
			vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), c.Surface, &hasPresent),
		)
		if err != nil {
			c.log.Warn("error querying surface support",
				zap.Int("family", i), zap.Error(err))
		} else if hasPresent.B() {
			indices.Present.Set(uint32(i))
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}

func (c *Context) createLogicalDevice() error {
	indices := c.Families
	if !indices.IsComplete() {
		return fmt.Errorf("selected physical device does not have all required queues")
	}

	queueFamilies := make(map[uint32]struct{})
	queueFamilies[indices.Graphics.Get()] = struct{}{}
	queueFamilies[indices.Present.Get()] = struct{}{}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{}

	for familyIndex := range queueFamilies {
		queueCreateInfos = append(
			queueCreateInfos,
			vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: familyIndex,
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		)
	}

	deviceFeatures := []vk.PhysicalDeviceFeatures{{
		SamplerAnisotropy: vk.True,
	}}

	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: deviceFeatures,

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(c.deviceExtensions)),
		PpEnabledExtensionNames: c.deviceExtensions,
	}

	if c.enableValidationLayers {
		createInfo.PpEnabledLayerNames = c.validationLayers
		createInfo.EnabledLayerCount = uint32(len(c.validationLayers))
	}

	var device vk.Device
	err := vk.Error(vk.CreateDevice(c.Physical, &createInfo, nil, &device))
	if err != nil {
		return fmt.Errorf("failed to create logical device: %w", err)
	}
	c.Device = device

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(c.Device, indices.Graphics.Get(), 0, &graphicsQueue)
	c.GraphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(c.Device, indices.Present.Get(), 0, &presentQueue)
	c.PresentQueue = presentQueue

	return nil
}

func (c *Context) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(
			vk.CommandPoolCreateResetCommandBufferBit,
		),
		QueueFamilyIndex: c.Families.Graphics.Get(),
	}

	var commandPool vk.CommandPool
	res := vk.CreateCommandPool(c.Device, &poolInfo, nil, &commandPool)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("failed to create command pool: %w", err)
	}
	c.CommandPool = commandPool

	return nil
}

func (c *Context) checkDeviceExtensionSupport(device vk.PhysicalDevice) bool {
	var extensionsCount uint32
	res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount, nil)
	if err := vk.Error(res); err != nil {
		c.log.Warn("enumerating device extension properties count", zap.Error(err))
		return false
	}

	availableExtensions := make([]vk.ExtensionProperties, extensionsCount)
	res = vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount,
		availableExtensions)
	if err := vk.Error(res); err != nil {
		c.log.Warn("getting device extension properties", zap.Error(err))
		return false
	}

	requiredExtensions := make(map[string]struct{})
	for _, extensionName := range c.deviceExtensions {
		requiredExtensions[extensionName] = struct{}{}
	}

	for _, extension := range availableExtensions {
		extension.Deref()
		extensionName := vk.ToString(extension.ExtensionName[:])

		delete(requiredExtensions, extensionName+"\x00")
	}

	return len(requiredExtensions) == 0
}

func (c *Context) checkValidationSupport() bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, count)

	if vk.EnumerateInstanceLayerProperties(&count, availableLayers) != vk.Success {
		return false
	}

	availableLayersStr := make([]string, 0, count)
	for _, layer := range availableLayers {
		layer.Deref()

		layerName := vk.ToString(layer.LayerName[:])
		availableLayersStr = append(availableLayersStr, layerName+"\x00")
	}

	for _, validationLayer := range c.validationLayers {
		layerFound := false

		for _, instanceLayer := range availableLayersStr {
			if validationLayer == instanceLayer {
				layerFound = true
				break
			}
		}

		if !layerFound {
			return false
		}
	}

	return true
}

// CreateShaderModule wraps SPIR-V bytecode into a shader module.
func (c *Context) CreateShaderModule(code []byte) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    unsafer.SliceBytesToUint32(code),
	}

	var shaderModule vk.ShaderModule
	res := vk.CreateShaderModule(c.Device, &createInfo, nil, &shaderModule)
	return shaderModule, vk.Error(res)
}
