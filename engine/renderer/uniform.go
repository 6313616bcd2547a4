package renderer

import (
	"fmt"

	"github.com/spaghettifunk/parallax/engine/core"
)

type UniformKind int

const (
	// UniformLiteral holds a fixed value uploaded on every apply.
	UniformLiteral UniformKind = iota
	// UniformSymbolic is derived from the render context camera and node.
	UniformSymbolic
	// UniformComputed is produced by a function of the render context.
	UniformComputed
)

func (k UniformKind) String() string {
	switch k {
	case UniformSymbolic:
		return "symbol"
	case UniformComputed:
		return "computed"
	default:
		return "literal"
	}
}

type UniformSymbol int

const (
	NormalMatrix UniformSymbol = iota
	ViewMatrix
	ModelMatrix
	ModelViewMatrix
	ProjectionMatrix
	ModelViewProjectionMatrix
)

func (s UniformSymbol) String() string {
	switch s {
	case NormalMatrix:
		return "NormalMatrix"
	case ViewMatrix:
		return "ViewMatrix"
	case ModelMatrix:
		return "ModelMatrix"
	case ModelViewMatrix:
		return "ModelViewMatrix"
	case ProjectionMatrix:
		return "ProjectionMatrix"
	case ModelViewProjectionMatrix:
		return "ModelViewProjectionMatrix"
	default:
		return fmt.Sprintf("UniformSymbol(%d)", int(s))
	}
}

// ComputedFn produces a uniform value from the context of the current draw.
type ComputedFn func(ctx *RenderContext) interface{}

/**
 * @brief One named uniform binding. Exactly one of Value, Symbol or Fn is meaningful,
 * selected by Kind. Label describes a computed uniform for inspection.
 */
type Uniform struct {
	Name   string
	Kind   UniformKind
	Value  interface{}
	Symbol UniformSymbol
	Fn     ComputedFn
	Label  string
}

// Resolve returns the value this uniform uploads for ctx.
func (u Uniform) Resolve(ctx *RenderContext) interface{} {
	switch u.Kind {
	case UniformSymbolic:
		switch u.Symbol {
		case NormalMatrix:
			return ctx.NormalMatrix()
		case ViewMatrix:
			return ctx.ViewMatrix()
		case ModelMatrix:
			return ctx.ModelMatrix()
		case ModelViewMatrix:
			return ctx.ModelViewMatrix()
		case ProjectionMatrix:
			return ctx.ProjectionMatrix()
		case ModelViewProjectionMatrix:
			return ctx.ModelViewProjectionMatrix()
		}
		return nil
	case UniformComputed:
		if u.Fn == nil {
			return nil
		}
		return u.Fn(ctx)
	default:
		return u.Value
	}
}

func (u Uniform) String() string {
	switch u.Kind {
	case UniformSymbolic:
		return fmt.Sprintf("%s=%s", u.Name, u.Symbol)
	case UniformComputed:
		return fmt.Sprintf("%s=computed(%s)", u.Name, u.Label)
	default:
		return fmt.Sprintf("%s=%v", u.Name, u.Value)
	}
}

/**
 * @brief An ordered list of uniform bindings. Names are not deduplicated: every entry is
 * uploaded in insertion order, so for repeated names the last one wins.
 */
type UniformGroup struct {
	uniforms []Uniform
}

func NewUniformGroup() *UniformGroup {
	return &UniformGroup{}
}

func (g *UniformGroup) SetLiteral(name string, value interface{}) {
	g.uniforms = append(g.uniforms, Uniform{Name: name, Kind: UniformLiteral, Value: value})
}

func (g *UniformGroup) SetSymbol(name string, symbol UniformSymbol) {
	g.uniforms = append(g.uniforms, Uniform{Name: name, Kind: UniformSymbolic, Symbol: symbol})
}

func (g *UniformGroup) SetComputed(name, label string, fn ComputedFn) {
	g.uniforms = append(g.uniforms, Uniform{Name: name, Kind: UniformComputed, Fn: fn, Label: label})
}

func (g *UniformGroup) Len() int {
	return len(g.uniforms)
}

// Uniforms returns a copy of the bindings in insertion order.
func (g *UniformGroup) Uniforms() []Uniform {
	out := make([]Uniform, len(g.uniforms))
	copy(out, g.uniforms)
	return out
}

// Apply uploads every binding to program p, which must be in use. Missing uniforms are skipped.
func (g *UniformGroup) Apply(p *Program, ctx *RenderContext) {
	for _, u := range g.uniforms {
		loc := p.UniformLocation(u.Name)
		if loc < 0 {
			continue
		}
		v := u.Resolve(ctx)
		if v == nil {
			continue
		}
		if !ctx.Backend().SetUniform(p.Handle, loc, v) {
			core.LogWarn("uniform '%s' of program '%s': unsupported value type %T", u.Name, p.Name, v)
		}
	}
}
