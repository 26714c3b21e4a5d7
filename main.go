// The main package for the gridscraper executable.
package main

import (
	"github.com/JakeFAU/gridscraper/cmd"
)

func main() {
	cmd.Execute()
}
