// The main package for the housing tracker executable.
package main

import (
	"github.com/JakeFAU/nj-housing-tracker/cmd"
)

func main() {
	cmd.Execute()
}
