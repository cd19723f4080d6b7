package main

import (
	"fmt"
	"os"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

func main() {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(helixerr.ExitCode(err))
}
