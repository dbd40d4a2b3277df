package device

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// CreateSemaphore makes a binary semaphore.
func (c *Context) CreateSemaphore() (vk.Semaphore, error) {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(c.Device, &semaphoreInfo, nil, &semaphore)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("failed to create semaphore: %w", err)
	}

	return semaphore, nil
}

// CreateFence makes a fence, optionally created in the signaled state so
// the first wait on a fresh frame slot does not block forever.
func (c *Context) CreateFence(signaled bool) (vk.Fence, error) {
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	res := vk.CreateFence(c.Device, &fenceInfo, nil, &fence)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("failed to create fence: %w", err)
	}

	return fence, nil
}
