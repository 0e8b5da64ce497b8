package main

import (
	"mod-deployer/cmd"
	"mod-deployer/logger"

	_ "go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// The log file is opened once the configuration is loaded.
	defer logger.Sync()
	cmd.Execute()
}
