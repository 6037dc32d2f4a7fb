//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the texstream binary into bin/.
func (Build) Cli() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/texstream", "."), withStream()); err != nil {
		return err
	}
	return nil
}
