package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/divehq/hostdeps/internal/platform"
)

// Set at build time via -ldflags "-X main.Version=... -X main.manifestDigest=...".
var (
	Version        = "v0.0.1-dev"
	manifestDigest = ""
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cmd := newRootCmd(appOptions{
		version:  Version,
		digest:   manifestDigest,
		detector: platform.NewDetector(),
		getenv:   os.Getenv,
	})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
