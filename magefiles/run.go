//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds and runs the viewer on a model file.
func (Run) Viewer(model string) error {
	mg.Deps(Build.Viewer)
	fmt.Printf("Run viewer on %s...\n", model)
	_, err := executeCmd(binary, withArgs(model), withStream())
	return err
}

type Test mg.Namespace

// Runs every test, with the debug GPU checks compiled in.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("test", "-tags", "debug", "./engine/..."), withStream())
	return err
}

// Tidies the module and runs go vet.
func (Test) Tidy() error {
	return goTidy()
}
