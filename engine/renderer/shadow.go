package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief Output of the shadow pass: light space matrix (bias * projection * view)
 * and the depth texture. Owned by the compositor and injected into render contexts.
 */
type ShadowState struct {
	Enabled bool
	Matrix  mgl32.Mat4
	Texture *Texture
}

func NewShadowState() *ShadowState {
	return &ShadowState{Matrix: mgl32.Ident4()}
}
