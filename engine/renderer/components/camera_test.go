package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestLookAtMatchesLookAtMatrix(t *testing.T) {
	cam := NewCamera()
	eye := mgl32.Vec3{1, 2, 3}
	center := mgl32.Vec3{0, 0, -5}
	up := mgl32.Vec3{0, 1, 0}
	cam.LookAt(eye, center, up)

	want := mgl32.LookAtV(eye, center, up)
	assert.True(t, want.ApproxEqualThreshold(cam.ViewMatrix(), 1e-4), "want %v got %v", want, cam.ViewMatrix())
}

func TestWithPositionKeepsOrientation(t *testing.T) {
	cam := NewCamera()
	cam.LookAt(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{5, 0, -1}, mgl32.Vec3{0, 1, 0})

	moved := cam.WithPosition(mgl32.Vec3{})
	assert.Equal(t, cam.Orientation, moved.Orientation)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, cam.Position)
	assert.True(t, mgl32.Ident4().ApproxEqualThreshold(moved.ViewMatrix(), 1e-5))
}

func TestProjectionSelection(t *testing.T) {
	cam := NewCamera()
	cam.Ortho(0, 800, 600, 0, 0.1, 10000)
	assert.Equal(t, mgl32.Ortho(0, 800, 600, 0, 0.1, 10000), cam.ProjectionMatrix())

	cam.Perspective(mgl32.DegToRad(42), 4.0/3.0, 0.1, 1000)
	assert.Equal(t, mgl32.Perspective(mgl32.DegToRad(42), 4.0/3.0, 0.1, 1000), cam.ProjectionMatrix())
}
