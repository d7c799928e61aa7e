package main

import (
	"github.com/lobbyd/lobbyd/internal/cli"
)

func main() {
	cli.Execute()
}
