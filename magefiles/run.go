//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compositor builds the shaders and runs the compositor with the testbed
// clients.
func (Run) Compositor() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run compositor...")
	if _, err := executeCmd("go", withArgs("run", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Tests runs the unit tests. None of them needs a GPU.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
