package main

import (
	"github.com/MotoAcidic/fluxd/cmd/fluxnoded/command"
)

func main() {
	command.Execute()
}
