//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Loads the given scene file with the CLI.
func (Run) Scene(path string) error {
	mg.Deps(Build.Cli)
	fmt.Printf("Loading scene %s...\n", path)
	if _, err := executeCmd("bin/texstream", withArgs("load", path), withStream()); err != nil {
		return err
	}
	return nil
}
