package main

import (
	"github.com/dshills/knowthecode/internal/cli"
)

func main() {
	cli.Execute()
}
