package main

import (
	"github.com/robotalks/ddsm.go/pkg/cli/sh"
	"github.com/robotalks/ddsm.go/pkg/env"

	_ "github.com/robotalks/ddsm.go/pkg/cli/cmds/motor"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
