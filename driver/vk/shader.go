// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"encoding/binary"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/gviegas/vkframe/driver"
)

// shaderCode implements driver.ShaderCode.
type shaderCode struct {
	d   *Driver
	mod vk.ShaderModule
}

// NewShaderCode creates a new shader code from SPIR-V data.
func (d *Driver) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	code, err := spirvWords(data)
	if err != nil {
		return nil, err
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    code,
	}
	var mod vk.ShaderModule
	if err := checkResult(vk.CreateShaderModule(d.dev, &info, nil, &mod)); err != nil {
		return nil, errors.Wrap(err, "vk: create shader module")
	}
	return &shaderCode{d: d, mod: mod}, nil
}

// Destroy destroys the shader code.
func (c *shaderCode) Destroy() {
	if c == nil {
		return
	}
	if c.d != nil {
		vk.DestroyShaderModule(c.d.dev, c.mod, nil)
	}
	*c = shaderCode{}
}

const spirvMagic = 0x07230203

// spirvWords converts SPIR-V data into 32-bit words.
// The data must be in little-endian byte order.
func spirvWords(data []byte) ([]uint32, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, errors.Errorf("vk: invalid SPIR-V size %d", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Errorf("vk: invalid SPIR-V magic number %#x", words[0])
	}
	return words, nil
}
