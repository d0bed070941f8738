// Package main implements the xet CLI: put/get against a remote CAS
// server, as specified in §6's external interfaces.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedisct1/draft-denis-xet/pkg/casclient"
	"github.com/jedisct1/draft-denis-xet/pkg/download"
	"github.com/jedisct1/draft-denis-xet/pkg/filewalk"
	"github.com/jedisct1/draft-denis-xet/pkg/upload"
	"github.com/jedisct1/draft-denis-xet/pkg/xetconfig"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// Build-time variables set by ldflags.
var (
	version    = "dev"
	buildTime  = "unknown"
	commitHash = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	case "put":
		if err := runPut(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "xet put: %v\n", err)
			os.Exit(1)
		}
	case "get":
		if err := runGet(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "xet get: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runPut(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: xet put <path>")
	}
	cfg := xetconfig.DefaultConfig()
	cfg.ServerURL = os.Getenv("XET_SERVER_URL")
	cfg.BearerToken = os.Getenv("XET_TOKEN")
	client := casclient.New(cfg)

	files, err := filewalk.Collect(args[0])
	if err != nil {
		return err
	}

	sess := upload.New(cfg, client)
	result, err := sess.Upload(context.Background(), files)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Printf("%s\t%s\n", f.FileHash.String(), f.Name)
	}
	fmt.Printf("new xorbs: %d\n", len(result.NewXorbs))
	return nil
}

func runGet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: xet get <file-hash> <output-path>")
	}
	fileHash, err := xethash.ParseString(args[0])
	if err != nil {
		return fmt.Errorf("parsing file hash: %w", err)
	}

	cfg := xetconfig.DefaultConfig()
	cfg.ServerURL = os.Getenv("XET_SERVER_URL")
	cfg.BearerToken = os.Getenv("XET_TOKEN")
	client := casclient.New(cfg)

	sess := download.New(cfg, client)
	data, err := sess.Download(context.Background(), fileHash, nil)
	if err != nil {
		return err
	}

	return os.WriteFile(args[1], data, 0o644)
}

func printVersion() {
	fmt.Printf("xet %s\n", version)
	fmt.Printf("Built: %s\n", buildTime)
	fmt.Printf("Commit: %s\n", commitHash)
}

func printUsage() {
	fmt.Printf(`xet v%s - content-addressed storage client

Usage:
  xet <command> [options]

Commands:
  put <path>               Upload a file or directory
  get <hash> <out-path>    Download a file by its file hash
  version                  Show version information
  help                     Show this help message

Environment:
  XET_SERVER_URL    Base URL of the remote CAS server
  XET_TOKEN         Bearer token sent with every request

`, version)
}
