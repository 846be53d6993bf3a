// Command ssctl is a dev CLI for stock-sentiment maintenance and debugging tasks.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/browser"

	"github.com/jad-chahin/stock-sentiment/internal/config"
	"github.com/jad-chahin/stock-sentiment/internal/store"
	"github.com/jad-chahin/stock-sentiment/internal/ticker"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: ssctl open <config|cache|data|runs>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	case "normalize":
		runNormalize(os.Args[2:])
	case "hint":
		runHint(strings.Join(os.Args[2:], " "))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ssctl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  open config      Open config file in default editor")
	fmt.Println("  open cache       Open cache directory in file explorer")
	fmt.Println("  open data        Open data directory in file explorer")
	fmt.Println("  open runs        Open run snapshot directory in file explorer")
	fmt.Println("  normalize SYM... Show how raw ticker symbols are normalized")
	fmt.Println("  hint TEXT        Report whether TEXT passes the keyword shortcut")
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "data":
		path, err = config.DataDir()
	case "runs":
		path, err = store.RunsDir()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}

func runNormalize(symbols []string) {
	for _, s := range symbols {
		n := ticker.Normalize(s)
		if n == "" {
			n = "(rejected)"
		}
		fmt.Printf("%-12s %s\n", s, n)
	}
}

func runHint(text string) {
	if ticker.HasFinanceHint(text) {
		fmt.Println("hint found: the comment goes to the model")
		return
	}
	fmt.Println("no hint: the comment is skipped with the keyword shortcut on")
}
