// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// pipeline implements driver.Pipeline.
type pipeline struct {
	d      *Driver
	pl     vk.Pipeline
	layout vk.PipelineLayout
}

// NewPipeline creates a new graphics pipeline.
// It has no vertex input nor descriptors, and its viewport
// and scissor are dynamic.
func (d *Driver) NewPipeline(gs *driver.GraphState) (driver.Pipeline, error) {
	if gs.Pass == nil {
		return nil, errors.New("vk: graphics pipeline requires a render pass")
	}
	layInfo := vk.PipelineLayoutCreateInfo{SType: vk.StructureTypePipelineLayoutCreateInfo}
	var layout vk.PipelineLayout
	if err := checkResult(vk.CreatePipelineLayout(d.dev, &layInfo, nil, &layout)); err != nil {
		return nil, errors.Wrap(err, "vk: create pipeline layout")
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, &gs.VertFunc),
		shaderStage(vk.ShaderStageFragmentBit, &gs.FragFunc),
	}
	input := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	ia := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: convTopology(gs.Topology),
	}
	vp := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	front := vk.FrontFaceCounterClockwise
	if gs.Clockwise {
		front = vk.FrontFaceClockwise
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    convCullMode(gs.Cull),
		FrontFace:   front,
		LineWidth:   1,
	}
	ms := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		}},
	}
	dyns := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dyn := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dyns)),
		PDynamicStates:    dyns,
	}
	infos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &input,
		PInputAssemblyState: &ia,
		PViewportState:      &vp,
		PRasterizationState: &raster,
		PMultisampleState:   &ms,
		PColorBlendState:    &blend,
		PDynamicState:       &dyn,
		Layout:              layout,
		RenderPass:          gs.Pass.(*renderPass).pass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}}
	pls := make([]vk.Pipeline, 1)
	if err := checkResult(vk.CreateGraphicsPipelines(d.dev, vk.PipelineCache(vk.NullHandle), 1, infos, nil, pls)); err != nil {
		vk.DestroyPipelineLayout(d.dev, layout, nil)
		return nil, errors.Wrap(err, "vk: create graphics pipeline")
	}
	return &pipeline{d: d, pl: pls[0], layout: layout}, nil
}

// shaderStage creates the stage info of fn.
func shaderStage(stage vk.ShaderStageFlagBits, fn *driver.ShaderFunc) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: fn.Code.(*shaderCode).mod,
		PName:  cstr(fn.Name),
	}
}

// Destroy destroys the pipeline.
func (p *pipeline) Destroy() {
	if p == nil {
		return
	}
	if p.d != nil {
		vk.DestroyPipeline(p.d.dev, p.pl, nil)
		vk.DestroyPipelineLayout(p.d.dev, p.layout, nil)
	}
	*p = pipeline{}
}
