// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resource

import (
	"encoding/binary"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Shader stages, as identified by the suffix of a shader
// resource ID.
const (
	VertSuffix = ".vert"
	FragSuffix = ".frag"
)

// ErrNoShader means that a requested shader was not
// loaded.
var ErrNoShader = errors.New("resource: shader not found")

const spirvMagic = 0x07230203

// ShaderLoader loads SPIR-V shaders.
// It accepts files named <name>.vert.spv and
// <name>.frag.spv, keyed by <name>.vert and <name>.frag.
type ShaderLoader struct {
	code map[string][]byte
}

// Accepts implements Loader.
func (l *ShaderLoader) Accepts(p, id string) bool {
	if path.Ext(p) != ".spv" {
		return false
	}
	return strings.HasSuffix(id, VertSuffix) || strings.HasSuffix(id, FragSuffix)
}

// Load implements Loader.
func (l *ShaderLoader) Load(fsys fs.FS, p, id string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return errors.Errorf("resource: invalid SPIR-V size %d", len(data))
	}
	if m := binary.LittleEndian.Uint32(data); m != spirvMagic {
		return errors.Errorf("resource: invalid SPIR-V magic number %#x", m)
	}
	if l.code == nil {
		l.code = make(map[string][]byte)
	}
	l.code[id] = data
	return nil
}

// Shader returns the SPIR-V code identified by id.
func (l *ShaderLoader) Shader(id string) ([]byte, bool) {
	data, ok := l.code[id]
	return data, ok
}

// Program returns the vertex and fragment shaders named
// name.
func (l *ShaderLoader) Program(name string) (vert, frag []byte, err error) {
	var ok bool
	if vert, ok = l.code[name+VertSuffix]; !ok {
		return nil, nil, errors.Wrap(ErrNoShader, name+VertSuffix)
	}
	if frag, ok = l.code[name+FragSuffix]; !ok {
		return nil, nil, errors.Wrap(ErrNoShader, name+FragSuffix)
	}
	return
}

// Programs returns the sorted names of every program whose
// vertex and fragment shaders were both loaded.
func (l *ShaderLoader) Programs() []string {
	var names []string
	for id := range l.code {
		name, ok := strings.CutSuffix(id, VertSuffix)
		if !ok {
			continue
		}
		if _, ok := l.code[name+FragSuffix]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
