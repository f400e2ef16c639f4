package main

import (
	"os"

	"github.com/wonny/fundflow/cmd/fundflow/commands"
)

// main is the entry point for the fundflow CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/fundflow [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
