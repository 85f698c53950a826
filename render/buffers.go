// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/gpucore"
)

// Attribute component counts.
const (
	PositionComponents = 2
	ColorComponents    = 4
	TexCoordComponents = 2
)

// BufferSet holds the device buffers of one uploaded shape. Optional
// arrays that were absent have InvalidID handles.
type BufferSet struct {
	Position gpucore.BufferID
	Color    gpucore.BufferID
	TexCoord gpucore.BufferID
	Index    gpucore.BufferID

	// VertexCount is the index count for indexed shapes and the vertex
	// count otherwise.
	VertexCount int
}

// Indexed reports whether the shape has an index buffer.
func (b *BufferSet) Indexed() bool {
	return b.Index != gpucore.InvalidID
}

// Upload validates g and copies each present array into its own static
// buffer. On failure the buffers created so far are destroyed.
func Upload(dev gpucore.Device, g bloom.GeometryData) (*BufferSet, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("render: upload: %w", err)
	}

	set := &BufferSet{VertexCount: g.VertexCount()}
	steps := []struct {
		name  string
		dst   *gpucore.BufferID
		usage gpucore.BufferUsage
		data  []byte
	}{
		{"position", &set.Position, gpucore.BufferUsageVertex, float32Bytes(g.Positions)},
		{"color", &set.Color, gpucore.BufferUsageVertex, float32Bytes(g.Colors)},
		{"texcoord", &set.TexCoord, gpucore.BufferUsageVertex, float32Bytes(g.TexCoords)},
		{"index", &set.Index, gpucore.BufferUsageIndex, uint16Bytes(g.Indices)},
	}
	for _, s := range steps {
		if s.data == nil {
			continue
		}
		id, err := dev.CreateBuffer(s.usage, s.data)
		if err != nil {
			set.Release(dev)
			return nil, fmt.Errorf("render: upload %s buffer: %w", s.name, err)
		}
		*s.dst = id
	}

	bloom.Logger().Debug("render: geometry uploaded",
		"vertices", g.NumVertices(),
		"count", set.VertexCount,
		"indexed", set.Indexed())
	return set, nil
}

// Release destroys the buffers. It is safe to call more than once.
func (b *BufferSet) Release(dev gpucore.Device) {
	if b == nil {
		return
	}
	for _, id := range []*gpucore.BufferID{&b.Position, &b.Color, &b.TexCoord, &b.Index} {
		if *id != gpucore.InvalidID {
			dev.DestroyBuffer(*id)
			*id = gpucore.InvalidID
		}
	}
}

func float32Bytes(v []float32) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 0, len(v)*4)
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

func uint16Bytes(v []uint16) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 0, len(v)*2)
	for _, x := range v {
		b = binary.LittleEndian.AppendUint16(b, x)
	}
	return b
}
