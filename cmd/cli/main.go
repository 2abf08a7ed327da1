package main

import (
	"github.com/prefaudit/prefaudit/pkg/cli"
)

func main() {
	cli.Execute()
}
