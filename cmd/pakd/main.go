package main

import (
	"fmt"
	"os"

	"github.com/rony4d/go-pak-sidechain/cmd/pakd/launcher"
)

func main() {

	if err := launcher.Launch(os.Args); err != nil {

		// Configuration and startup errors are fatal.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

}
