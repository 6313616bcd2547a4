package recorder

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vs = `
#version 410 core
layout(location = 0) in vec3 position;
in vec2 texcoord;
uniform mat4 MVP;
uniform highp mat4 bones[4];
void main() {}
`

const fs = `
#version 410 core
uniform mat4 MVP;
uniform sampler2D left_eye;
out vec4 color;
void main() {}
`

func TestProgramDeclarationsBecomeLocations(t *testing.T) {
	b := New()
	h, err := b.CreateProgram("p", vs, fs)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, b.UniformLocation(h, "MVP"), int32(0))
	assert.GreaterOrEqual(t, b.UniformLocation(h, "left_eye"), int32(0))
	assert.Equal(t, b.UniformLocation(h, "bones"), b.UniformLocation(h, "bones[0]"))
	assert.Equal(t, b.UniformLocation(h, "bones")+3, b.UniformLocation(h, "bones[3]"))
	assert.Equal(t, int32(-1), b.UniformLocation(h, "bones[4]"))
	assert.Equal(t, int32(-1), b.UniformLocation(h, "missing"))

	assert.Equal(t, int32(0), b.AttributeLocation(h, "position"))
	assert.Equal(t, int32(1), b.AttributeLocation(h, "texcoord"))
	assert.Equal(t, int32(-1), b.AttributeLocation(h, "color"))
}

func TestCompileFailure(t *testing.T) {
	b := New()
	_, err := b.CreateProgram("broken", vs, "#error boom")
	assert.ErrorIs(t, err, core.ErrShaderCompile)
	_, err = b.CreateProgram("empty", "  ", fs)
	assert.ErrorIs(t, err, core.ErrShaderCompile)
}

func TestSetUniformRejectsUnsupportedTypes(t *testing.T) {
	b := New()
	h, err := b.CreateProgram("p", vs, fs)
	require.NoError(t, err)
	loc := b.UniformLocation(h, "MVP")

	assert.False(t, b.SetUniform(h, loc, "not a matrix"))
	assert.True(t, b.SetUniform(h, loc, mgl32.Ident4()))
	v, ok := b.UniformValue(h, "MVP")
	require.True(t, ok)
	assert.Equal(t, mgl32.Ident4(), v)
}

func TestDrawSnapshotsStateAndTarget(t *testing.T) {
	b := New()
	b.DefaultWidth, b.DefaultHeight = 800, 600
	h, err := b.CreateProgram("p", vs, fs)
	require.NoError(t, err)

	color := b.CreateTexture(64, 32, metadata.TextureFormatRGBA8, nil)
	fb, err := b.CreateFramebuffer(renderer.FramebufferAttachments{ColorTexture: color})
	require.NoError(t, err)

	b.UseProgram(h)
	b.Enable(metadata.CapabilityBlend)
	b.BindVertexAttribute(0, b.CreateVertexBuffer([]float32{0, 0, 0}), 3)
	b.BindFramebuffer(fb)
	b.DrawArrays(metadata.TopologyTriangles, 0, 3)
	b.BindFramebuffer(0)
	b.Disable(metadata.CapabilityBlend)
	b.DrawArrays(metadata.TopologyPoints, 0, 1)

	require.Len(t, b.Draws, 2)
	first := b.Draws[0]
	assert.Equal(t, "p", first.ProgramName)
	assert.Equal(t, []string{"position"}, first.Attributes)
	assert.Equal(t, 64, first.TargetWidth)
	assert.True(t, first.State.Capabilities[metadata.CapabilityBlend])
	assert.Equal(t, 800, b.Draws[1].TargetWidth)
	assert.False(t, b.Draws[1].State.Capabilities[metadata.CapabilityBlend])
}

func TestFramebufferCompleteness(t *testing.T) {
	b := New()
	_, err := b.CreateFramebuffer(renderer.FramebufferAttachments{})
	assert.ErrorIs(t, err, core.ErrFramebufferIncomplete)

	rb := b.CreateRenderbuffer(16, 16, 8, metadata.TextureFormatRGBA8)
	h, err := b.CreateFramebuffer(renderer.FramebufferAttachments{ColorRenderbuffer: rb})
	require.NoError(t, err)
	w, hh := b.FramebufferSize(h)
	assert.Equal(t, 16, w)
	assert.Equal(t, 16, hh)

	b.IncompleteFramebuffers = true
	_, err = b.CreateFramebuffer(renderer.FramebufferAttachments{ColorRenderbuffer: rb})
	assert.ErrorIs(t, err, core.ErrFramebufferIncomplete)
	assert.Equal(t, 3, b.LiveFramebuffers())
}

func TestCheckErrorClearsPendingError(t *testing.T) {
	b := New()
	b.PendingError = core.ErrUnknown
	assert.ErrorIs(t, b.CheckError(), core.ErrUnknown)
	assert.NoError(t, b.CheckError())
}
