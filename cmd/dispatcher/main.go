package main

import (
	"os"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
)

func main() {
	util.LoadEnv()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
