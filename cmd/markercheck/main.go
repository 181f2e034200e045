// The main package for the markercheck executable.
package main

import (
	"os"

	"github.com/JakeFAU/markercheck/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
