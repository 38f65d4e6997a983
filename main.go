package main

import (
	"flag"
	"fmt"
	"os"
	"rsd/internal/di"
	"rsd/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to yaml config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "duplicate logs to stderr")
	flag.Parse()

	_, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rsd: %s\n", err)
		os.Exit(1)
	}
}
