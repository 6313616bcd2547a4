package renderer

import (
	"github.com/spaghettifunk/parallax/engine/core"
)

/**
 * @brief A linked GPU program shared by any number of materials. The backend object is
 * destroyed when the last holder releases it.
 */
type Program struct {
	ID     core.ResourceID
	Name   string
	Handle uint32

	backend    Backend
	refs       int
	uniforms   map[string]int32
	attributes map[string]int32
	// names already reported missing, to warn once per program and name
	warned map[string]bool
}

// NewProgram compiles and links a program. The returned program holds one reference.
func NewProgram(b Backend, name, vertexSource, fragmentSource string) (*Program, error) {
	handle, err := b.CreateProgram(name, vertexSource, fragmentSource)
	if err != nil {
		return nil, err
	}
	core.AssertGPU(b, "create program "+name)
	return &Program{
		ID:         core.NewResourceID(),
		Name:       name,
		Handle:     handle,
		backend:    b,
		refs:       1,
		uniforms:   make(map[string]int32),
		attributes: make(map[string]int32),
		warned:     make(map[string]bool),
	}, nil
}

func (p *Program) Acquire() *Program {
	p.refs++
	return p
}

// Release drops one reference and destroys the program when none remain.
func (p *Program) Release() {
	if p.refs <= 0 {
		return
	}
	p.refs--
	if p.refs == 0 {
		p.backend.DestroyProgram(p.Handle)
		p.Handle = 0
	}
}

func (p *Program) RefCount() int {
	return p.refs
}

// UniformLocation returns the cached location of name, or -1 when the program lacks it.
// A missing uniform is reported once as a warning.
func (p *Program) UniformLocation(name string) int32 {
	loc, ok := p.uniforms[name]
	if !ok {
		loc = p.backend.UniformLocation(p.Handle, name)
		p.uniforms[name] = loc
	}
	if loc < 0 && !p.warned["u:"+name] {
		p.warned["u:"+name] = true
		core.LogWarn("program '%s' has no uniform '%s'", p.Name, name)
	}
	return loc
}

// HasUniform reports whether the program declares name, without warning when it does not.
func (p *Program) HasUniform(name string) bool {
	loc, ok := p.uniforms[name]
	if !ok {
		loc = p.backend.UniformLocation(p.Handle, name)
		p.uniforms[name] = loc
	}
	return loc >= 0
}

// AttributeLocation returns the cached location of the vertex input name, or -1.
func (p *Program) AttributeLocation(name string) int32 {
	loc, ok := p.attributes[name]
	if !ok {
		loc = p.backend.AttributeLocation(p.Handle, name)
		p.attributes[name] = loc
	}
	return loc
}
