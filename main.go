// -- main.go --
package main

import "github.com/halcyonsec/vantage/cmd"

func main() {
	cmd.Execute()
}
