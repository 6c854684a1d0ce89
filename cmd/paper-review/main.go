// paper-review segments a research paper into canonical sections and runs
// the multi-stage review pipeline over it.
//
// Usage:
//
//	paper-review serve [--addr=:8000]
//	paper-review review paper.pdf [--format=markdown] [-o report.md] [--pdf report.pdf]
//	paper-review segment paper.pdf [--json]
//	paper-review render report.json -o report.pdf [--html]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
