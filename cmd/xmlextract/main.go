package main

import (
	"os"

	"github.com/TheMichaelB/xmlextract/internal/models"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Close()
		logger = nil
	}
	if err == nil {
		return 0
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": false,
			"code":    models.ErrorCode(err),
			"error":   err.Error(),
		})
	} else {
		printError("%s: %v", models.ErrorCode(err), err)
	}
	return 1
}
