package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quentin/dafgen/internal/audio"
	"github.com/quentin/dafgen/internal/logging"
	mcpserver "github.com/quentin/dafgen/internal/server/mcp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	delayMs      = flag.Int("delay", 200, "Initial feedback delay in milliseconds")
	gain         = flag.Float64("gain", 1.0, "Initial output gain as a linear factor")
	inputDevice  = flag.String("input-device", "", "Audio input device name")
	outputDevice = flag.String("output-device", "", "Audio output device name")
	debug        = flag.Bool("debug", false, "Write a debug log under ~/.dafgen")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("dafgen MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	logger, closeLog, err := logging.Setup(*debug, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
	}
	defer closeLog()

	sessionConfig := audio.DefaultSessionConfig()
	sessionConfig.Delay = time.Duration(*delayMs) * time.Millisecond
	sessionConfig.Gain = *gain
	sessionConfig.InputDevice = *inputDevice
	sessionConfig.OutputDevice = *outputDevice

	server, err := mcpserver.NewServer(mcpserver.Config{
		ServerName:    "dafgen",
		ServerVersion: Version,
		Session:       sessionConfig,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}
	defer server.Stop()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
