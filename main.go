package main

import (
	"os"

	"smartfarm-dashboard-go/internal/cli"
)

// Version information - set by linker flags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	err := cli.Execute(cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
	})
	if err != nil {
		os.Exit(1)
	}
}
