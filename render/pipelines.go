package render

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Paper-2/blackHoleSim/device"
	"github.com/Paper-2/blackHoleSim/models"
	"github.com/Paper-2/blackHoleSim/shaders"
	"github.com/Paper-2/blackHoleSim/textures"
	"github.com/Paper-2/blackHoleSim/unsafer"
)

// pipeline is the closed set of render pipeline variants: particle field,
// singularity sphere and the full-screen ray-march pass.
type pipeline interface {
	// Build creates the Vulkan pipeline and its descriptor state. It must
	// be called before RecordDraw; calling RecordDraw on an unbuilt
	// pipeline is a programming error.
	Build(ctx *device.Context, renderPass vk.RenderPass, slots []*frameSlot) error

	// RecordDraw appends this pipeline's draw commands for the given slot
	// into an already begun render pass.
	RecordDraw(commandBuffer vk.CommandBuffer, slot *frameSlot)

	// Dispose destroys everything Build created. The caller waits the
	// device idle first.
	Dispose(ctx *device.Context)
}

// newPipelines returns the pipelines in draw order. The sphere writes depth
// first; the ray-march pass then fills every pixel still at the far plane.
// The particles come last: they blend and write no depth, so anything drawn
// after them would depth-test against the clear value and paint them over.
func newPipelines() []pipeline {
	return []pipeline{
		&spherePipeline{},
		&raymarchPipeline{},
		&particlePipeline{},
	}
}

// pipelineSpec is the per-variant configuration fed to the shared pipeline
// construction path.
type pipelineSpec struct {
	vertShader string
	fragShader string

	topology vk.PrimitiveTopology

	bindings   []vk.VertexInputBindingDescription
	attributes []vk.VertexInputAttributeDescription

	depthTest    bool
	depthWrite   bool
	depthCompare vk.CompareOp

	alphaBlend bool

	// cullNone disables back-face culling. The full-screen triangle winds
	// clockwise in Vulkan's y-down framebuffer space and would otherwise
	// be culled whole.
	cullNone bool
}

// loadShaderPair reads the compiled SPIR-V for both stages. A missing
// module is fatal; the error names the file.
func loadShaderPair(ctx *device.Context, vertName, fragName string) (vk.ShaderModule, vk.ShaderModule, error) {
	nullModule := vk.ShaderModule(vk.NullHandle)

	vertCode, err := shaders.LoadSPIRV(vertName)
	if err != nil {
		return nullModule, nullModule, err
	}
	fragCode, err := shaders.LoadSPIRV(fragName)
	if err != nil {
		return nullModule, nullModule, err
	}

	vertModule, err := ctx.CreateShaderModule(vertCode)
	if err != nil {
		return nullModule, nullModule,
			fmt.Errorf("creating vertex shader module %s: %w", vertName, err)
	}
	fragModule, err := ctx.CreateShaderModule(fragCode)
	if err != nil {
		vk.DestroyShaderModule(ctx.Device, vertModule, nil)
		return nullModule, nullModule,
			fmt.Errorf("creating fragment shader module %s: %w", fragName, err)
	}

	return vertModule, fragModule, nil
}

func createPipeline(
	ctx *device.Context,
	renderPass vk.RenderPass,
	descriptorSetLayout vk.DescriptorSetLayout,
	spec pipelineSpec,
) (vk.PipelineLayout, vk.Pipeline, error) {
	nullLayout := vk.PipelineLayout(vk.NullHandle)

	vertModule, fragModule, err := loadShaderPair(ctx, spec.vertShader, spec.fragShader)
	if err != nil {
		return nullLayout, vk.Pipeline(vk.NullHandle), err
	}
	defer vk.DestroyShaderModule(ctx.Device, vertModule, nil)
	defer vk.DestroyShaderModule(ctx.Device, fragModule, nil)

	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertModule,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  "main\x00",
		},
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,

		VertexBindingDescriptionCount: uint32(len(spec.bindings)),
		PVertexBindingDescriptions:    spec.bindings,

		VertexAttributeDescriptionCount: uint32(len(spec.attributes)),
		PVertexAttributeDescriptions:    spec.attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               spec.topology,
		PrimitiveRestartEnable: vk.False,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}

	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	cullMode := vk.CullModeFlags(vk.CullModeBackBit)
	if spec.cullNone {
		cullMode = vk.CullModeFlags(vk.CullModeNone)
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1,
		CullMode:                cullMode,
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit |
				vk.ColorComponentGBit |
				vk.ColorComponentBBit |
				vk.ColorComponentABit,
		),
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
	}

	if spec.alphaBlend {
		colorBlendAttachment.BlendEnable = vk.True
		colorBlendAttachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachment.SrcAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachment.DstAlphaBlendFactor = vk.BlendFactorZero
	}

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{
			colorBlendAttachment,
		},
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descriptorSetLayout},
	}

	var pipelineLayout vk.PipelineLayout
	res := vk.CreatePipelineLayout(ctx.Device, &pipelineLayoutInfo, nil, &pipelineLayout)
	if err := vk.Error(res); err != nil {
		return nullLayout, vk.Pipeline(vk.NullHandle),
			fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	depthTest := vk.Bool32(vk.False)
	if spec.depthTest {
		depthTest = vk.True
	}
	depthWrite := vk.Bool32(vk.False)
	if spec.depthWrite {
		depthWrite = vk.True
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       depthTest,
		DepthWriteEnable:      depthWrite,
		DepthCompareOp:        spec.depthCompare,
		DepthBoundsTestEnable: vk.False,
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
		StencilTestEnable:     vk.False,
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              pipelineLayout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.Pipeline(vk.NullHandle),
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	res = vk.CreateGraphicsPipelines(
		ctx.Device,
		vk.PipelineCache(vk.NullHandle),
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo},
		nil,
		pipelines,
	)
	if err := vk.Error(res); err != nil {
		vk.DestroyPipelineLayout(ctx.Device, pipelineLayout, nil)
		return nullLayout, vk.Pipeline(vk.NullHandle),
			fmt.Errorf("failed to create graphics pipeline: %w", err)
	}

	return pipelineLayout, pipelines[0], nil
}

func createUniformDescriptorLayout(
	ctx *device.Context,
	samplerCount int,
) (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) |
				vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}

	for i := 0; i < samplerCount; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(1 + i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(ctx.Device, &layoutInfo, nil, &layout)
	if res != vk.Success {
		return vk.DescriptorSetLayout(vk.NullHandle),
			fmt.Errorf("creating descriptor set layout: %w", vk.Error(res))
	}

	return layout, nil
}

// descriptorState is the pool and per-slot sets a pipeline binds.
type descriptorState struct {
	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
}

func createDescriptorState(
	ctx *device.Context,
	slots []*frameSlot,
	samplers []*device.Texture,
) (*descriptorState, error) {
	layout, err := createUniformDescriptorLayout(ctx, len(samplers))
	if err != nil {
		return nil, err
	}

	state := &descriptorState{layout: layout}

	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: maxFramesInFlight,
		},
	}
	if len(samplers) > 0 {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(len(samplers)) * maxFramesInFlight,
		})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxFramesInFlight,
	}

	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(ctx.Device, &poolInfo, nil, &pool)
	if res != vk.Success {
		state.Dispose(ctx)
		return nil, fmt.Errorf("failed to create descriptor pool: %w", vk.Error(res))
	}
	state.pool = pool

	layouts := make([]vk.DescriptorSetLayout, maxFramesInFlight)
	for i := range layouts {
		layouts[i] = layout
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: maxFramesInFlight,
		PSetLayouts:        layouts,
	}

	state.sets = make([]vk.DescriptorSet, maxFramesInFlight)
	res = vk.AllocateDescriptorSets(ctx.Device, &allocInfo, &state.sets[0])
	if res != vk.Success {
		state.Dispose(ctx)
		return nil, fmt.Errorf("failed to allocate descriptor sets: %w", vk.Error(res))
	}

	for i, slot := range slots {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: slot.uniform.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(vk.WholeSize),
		}

		descriptorWrites := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          state.sets[i],
				DstBinding:      0,
				DstArrayElement: 0,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
			},
		}

		for s, tex := range samplers {
			imageInfo := vk.DescriptorImageInfo{
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				ImageView:   tex.View,
				Sampler:     tex.Sampler,
			}

			descriptorWrites = append(descriptorWrites, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          state.sets[i],
				DstBinding:      uint32(1 + s),
				DstArrayElement: 0,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
			})
		}

		vk.UpdateDescriptorSets(
			ctx.Device,
			uint32(len(descriptorWrites)),
			descriptorWrites,
			0,
			nil,
		)
	}

	return state, nil
}

func (d *descriptorState) Dispose(ctx *device.Context) {
	if d.pool != vk.DescriptorPool(vk.NullHandle) {
		vk.DestroyDescriptorPool(ctx.Device, d.pool, nil)
		d.pool = vk.DescriptorPool(vk.NullHandle)
	}
	if d.layout != vk.DescriptorSetLayout(vk.NullHandle) {
		vk.DestroyDescriptorSetLayout(ctx.Device, d.layout, nil)
		d.layout = vk.DescriptorSetLayout(vk.NullHandle)
	}
}

// particlePipeline draws the accretion disk dust as a point list from the
// per-slot mutable vertex buffers.
type particlePipeline struct {
	layout      vk.PipelineLayout
	handle      vk.Pipeline
	descriptors *descriptorState
}

func (p *particlePipeline) Build(
	ctx *device.Context,
	renderPass vk.RenderPass,
	slots []*frameSlot,
) error {
	descriptors, err := createDescriptorState(ctx, slots, nil)
	if err != nil {
		return fmt.Errorf("particle descriptors: %w", err)
	}
	p.descriptors = descriptors

	spec := pipelineSpec{
		vertShader: "particles.vert",
		fragShader: "particles.frag",
		topology:   vk.PrimitiveTopologyPointList,
		bindings: []vk.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    uint32(unsafe.Sizeof(ParticleVertex{})),
				InputRate: vk.VertexInputRateVertex,
			},
		},
		attributes: []vk.VertexInputAttributeDescription{
			{
				Binding:  0,
				Location: 0,
				Format:   vk.FormatR32g32b32Sfloat,
				Offset:   0,
			},
		},
		depthTest:    true,
		depthWrite:   false,
		depthCompare: vk.CompareOpLess,
		alphaBlend:   true,
	}

	p.layout, p.handle, err = createPipeline(ctx, renderPass, descriptors.layout, spec)
	if err != nil {
		p.descriptors.Dispose(ctx)
		return fmt.Errorf("particle pipeline: %w", err)
	}
	return nil
}

func (p *particlePipeline) RecordDraw(commandBuffer vk.CommandBuffer, slot *frameSlot) {
	if slot.vertexCount == 0 {
		return
	}

	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, p.handle)
	vk.CmdBindDescriptorSets(
		commandBuffer,
		vk.PipelineBindPointGraphics,
		p.layout,
		0,
		1,
		[]vk.DescriptorSet{p.descriptors.sets[slot.index]},
		0,
		nil,
	)

	vertexBuffers := []vk.Buffer{slot.vertex.Handle}
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(commandBuffer, 0, 1, vertexBuffers, offsets)

	vk.CmdDraw(commandBuffer, uint32(slot.vertexCount), 1, 0, 0)
}

func (p *particlePipeline) Dispose(ctx *device.Context) {
	if p.handle != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(ctx.Device, p.handle, nil)
		p.handle = vk.Pipeline(vk.NullHandle)
	}
	if p.layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(ctx.Device, p.layout, nil)
		p.layout = vk.PipelineLayout(vk.NullHandle)
	}
	if p.descriptors != nil {
		p.descriptors.Dispose(ctx)
	}
}

// spherePipeline draws the event horizon as an opaque mesh uploaded once
// through a staging buffer.
type spherePipeline struct {
	layout      vk.PipelineLayout
	handle      vk.Pipeline
	descriptors *descriptorState

	vertexBuffer device.Buffer
	indexBuffer  device.Buffer
	indexCount   uint32
}

func (p *spherePipeline) Build(
	ctx *device.Context,
	renderPass vk.RenderPass,
	slots []*frameSlot,
) error {
	vertices, indices, err := models.LoadSphere()
	if err != nil {
		return fmt.Errorf("loading sphere mesh: %w", err)
	}

	p.vertexBuffer, err = ctx.CreateDeviceLocalBuffer(
		unsafer.SliceToBytes(vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
	)
	if err != nil {
		return fmt.Errorf("sphere vertex buffer: %w", err)
	}

	p.indexBuffer, err = ctx.CreateDeviceLocalBuffer(
		unsafer.SliceToBytes(indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
	)
	if err != nil {
		p.vertexBuffer.Destroy(ctx)
		return fmt.Errorf("sphere index buffer: %w", err)
	}
	p.indexCount = uint32(len(indices))

	descriptors, err := createDescriptorState(ctx, slots, nil)
	if err != nil {
		p.Dispose(ctx)
		return fmt.Errorf("sphere descriptors: %w", err)
	}
	p.descriptors = descriptors

	spec := pipelineSpec{
		vertShader: "sphere.vert",
		fragShader: "sphere.frag",
		topology:   vk.PrimitiveTopologyTriangleList,
		bindings: []vk.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    uint32(unsafe.Sizeof(models.Vertex{})),
				InputRate: vk.VertexInputRateVertex,
			},
		},
		attributes: []vk.VertexInputAttributeDescription{
			{
				Binding:  0,
				Location: 0,
				Format:   vk.FormatR32g32b32Sfloat,
				Offset:   uint32(unsafe.Offsetof(models.Vertex{}.Position)),
			},
			{
				Binding:  0,
				Location: 1,
				Format:   vk.FormatR32g32b32Sfloat,
				Offset:   uint32(unsafe.Offsetof(models.Vertex{}.Normal)),
			},
		},
		depthTest:    true,
		depthWrite:   true,
		depthCompare: vk.CompareOpLess,
	}

	p.layout, p.handle, err = createPipeline(ctx, renderPass, descriptors.layout, spec)
	if err != nil {
		p.Dispose(ctx)
		return fmt.Errorf("sphere pipeline: %w", err)
	}
	return nil
}

func (p *spherePipeline) RecordDraw(commandBuffer vk.CommandBuffer, slot *frameSlot) {
	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, p.handle)
	vk.CmdBindDescriptorSets(
		commandBuffer,
		vk.PipelineBindPointGraphics,
		p.layout,
		0,
		1,
		[]vk.DescriptorSet{p.descriptors.sets[slot.index]},
		0,
		nil,
	)

	vertexBuffers := []vk.Buffer{p.vertexBuffer.Handle}
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(commandBuffer, 0, 1, vertexBuffers, offsets)
	vk.CmdBindIndexBuffer(commandBuffer, p.indexBuffer.Handle, 0, vk.IndexTypeUint32)

	vk.CmdDrawIndexed(commandBuffer, p.indexCount, 1, 0, 0, 0)
}

func (p *spherePipeline) Dispose(ctx *device.Context) {
	if p.handle != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(ctx.Device, p.handle, nil)
		p.handle = vk.Pipeline(vk.NullHandle)
	}
	if p.layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(ctx.Device, p.layout, nil)
		p.layout = vk.PipelineLayout(vk.NullHandle)
	}
	if p.descriptors != nil {
		p.descriptors.Dispose(ctx)
	}
	p.vertexBuffer.Destroy(ctx)
	p.indexBuffer.Destroy(ctx)
}

// raymarchPipeline draws the lensed sky and accretion disk as a full-screen
// triangle, pinned to the far plane so it fills only background pixels.
type raymarchPipeline struct {
	layout      vk.PipelineLayout
	handle      vk.Pipeline
	descriptors *descriptorState

	noise  *device.Texture
	skybox *device.Texture
}

func (p *raymarchPipeline) Build(
	ctx *device.Context,
	renderPass vk.RenderPass,
	slots []*frameSlot,
) error {
	noiseImg, err := textures.Noise()
	if err != nil {
		return fmt.Errorf("loading noise texture: %w", err)
	}

	p.noise, err = ctx.CreateTexture(noiseImg, vk.SamplerAddressModeRepeat)
	if err != nil {
		return fmt.Errorf("uploading noise texture: %w", err)
	}

	p.skybox, err = ctx.CreateTexture(textures.Skybox(), vk.SamplerAddressModeRepeat)
	if err != nil {
		p.Dispose(ctx)
		return fmt.Errorf("uploading skybox texture: %w", err)
	}

	descriptors, err := createDescriptorState(
		ctx, slots, []*device.Texture{p.noise, p.skybox},
	)
	if err != nil {
		p.Dispose(ctx)
		return fmt.Errorf("ray-march descriptors: %w", err)
	}
	p.descriptors = descriptors

	spec := pipelineSpec{
		vertShader:   "raymarch.vert",
		fragShader:   "raymarch.frag",
		topology:     vk.PrimitiveTopologyTriangleList,
		depthTest:    true,
		depthWrite:   false,
		depthCompare: vk.CompareOpLessOrEqual,
		cullNone:     true,
	}

	p.layout, p.handle, err = createPipeline(ctx, renderPass, descriptors.layout, spec)
	if err != nil {
		p.Dispose(ctx)
		return fmt.Errorf("ray-march pipeline: %w", err)
	}
	return nil
}

func (p *raymarchPipeline) RecordDraw(commandBuffer vk.CommandBuffer, slot *frameSlot) {
	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, p.handle)
	vk.CmdBindDescriptorSets(
		commandBuffer,
		vk.PipelineBindPointGraphics,
		p.layout,
		0,
		1,
		[]vk.DescriptorSet{p.descriptors.sets[slot.index]},
		0,
		nil,
	)

	vk.CmdDraw(commandBuffer, 3, 1, 0, 0)
}

func (p *raymarchPipeline) Dispose(ctx *device.Context) {
	if p.handle != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(ctx.Device, p.handle, nil)
		p.handle = vk.Pipeline(vk.NullHandle)
	}
	if p.layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(ctx.Device, p.layout, nil)
		p.layout = vk.PipelineLayout(vk.NullHandle)
	}
	if p.descriptors != nil {
		p.descriptors.Dispose(ctx)
	}
	if p.noise != nil {
		p.noise.Destroy(ctx)
		p.noise = nil
	}
	if p.skybox != nil {
		p.skybox.Destroy(ctx)
		p.skybox = nil
	}
}
