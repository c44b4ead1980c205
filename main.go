// main is the entry point of the fluentgate CLI.
package main

import (
	"github.com/huangsam/fluentgate/cmd"
	"github.com/huangsam/fluentgate/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Error running command", err)
	}
}
