package main

import (
	"os"

	"github.com/joho/godotenv"

	tiaerrors "tia/internal/errors"
	"tia/internal/logging"
)

func main() {
	// TIA_* overrides may live in a local .env file.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		logger := logging.NewLogger(logging.Config{
			Format: logging.HumanFormat,
			Level:  logging.InfoLevel,
		})
		code := tiaerrors.CodeOf(err)
		fields := map[string]interface{}{
			"error": err.Error(),
			"code":  string(code),
		}
		for _, fix := range tiaerrors.GetSuggestedFixes(code) {
			if fix.Command != "" {
				fields["try"] = fix.Command
				break
			}
		}
		logger.Error("Command execution failed", fields)
		os.Exit(1)
	}
}
