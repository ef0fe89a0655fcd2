package main

import (
	"os"

	"github.com/go-pstack/pstack/cmd/pstack/cmds"
)

func main() {
	// "-?" is the traditional help switch on Windows tools.
	for i, arg := range os.Args[1:] {
		if arg == "-?" {
			os.Args[i+1] = "--help"
		}
	}
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
