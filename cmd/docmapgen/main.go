/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// docmapgen generates a doccontext context model from a YAML manifest.
//
// Usage:
//
//	docmapgen -manifest league.yaml [-out league_gen.go]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/suparena/doccontext"
	"github.com/suparena/doccontext/processor"
)

var (
	manifestFlag = flag.String("manifest", "", "Path to the YAML manifest (required)")
	outFlag      = flag.String("out", "", "Output Go file (default: stdout)")
	versionFlag  = flag.Bool("version", false, "Show version information")
	vFlag        = flag.Bool("v", false, "Show version information (short)")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := doccontext.GetVersionInfo()
		fmt.Printf("doccontext docmapgen version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if *manifestFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -manifest flag is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*manifestFlag, *outFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, outPath string) error {
	m, err := processor.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return processor.Render(w, m, doccontext.Version)
}
