package main

import (
	_ "time/tzdata"

	"github.com/comitanigiacomo/kanso-tracker/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Execute(version)
}
