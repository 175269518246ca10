// ipatch - in-place differential firmware updates for Foenix retro computers
//
// Besides the patch engine (release, verify), this tool carries a few
// debug-port commands: erasing and programming flash memory and dumping
// memory over serial or TCP.
package main

import (
	"fmt"
	"os"

	"github.com/daschewie/ipatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
