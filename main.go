// Command stock-sentiment collects Reddit comments and tallies per-ticker
// sentiment extracted by an LLM.
package main

import (
	"os"

	"github.com/jad-chahin/stock-sentiment/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
