package main

import (
	"github.com/tealfin/cryptogains/cmd"
)

func main() {
	cmd.Execute()
}
