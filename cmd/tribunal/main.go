package main

import (
	"github.com/solsafe/tribunal/cli"
)

var version = "dev"

func main() {
	cli.Execute("tribunal", version)
}
