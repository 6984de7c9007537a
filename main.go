package main

import (
	"github.com/luma/respkit/cmd"
)

func main() {
	cmd.Execute()
}
