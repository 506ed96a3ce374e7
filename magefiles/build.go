//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Shaders compiles every GLSL stage in shaders/ to SPIR-V in assets/shaders/.
func (Build) Shaders() error {
	return buildShaders()
}

// Compositor builds the shaders and the binary.
func (Build) Compositor() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkcompositor", "."), withStream())
	return err
}
