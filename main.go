package main

import "github.com/makegen-build/makegen/cmd"

func main() {
	cmd.Execute()
}
