package main

import (
	"apk-catalog/cmd"
	"apk-catalog/logger"

	_ "go.uber.org/automaxprocs/maxprocs"
)

func main() {
	defer logger.Sync() // Ensure logs are flushed on exit
	cmd.Execute()
}
