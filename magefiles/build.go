//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const binary = "bin/parallax"

type Build mg.Namespace

// Builds the viewer binary into bin/.
func (Build) Viewer() error {
	_, err := executeCmd("go", withArgs("build", "-o", binary, "."), withStream())
	return err
}

// Builds the viewer with GPU error checks after every frame.
func (Build) Debug() error {
	_, err := executeCmd("go", withArgs("build", "-tags", "debug", "-o", binary+"-debug", "."), withStream())
	return err
}
