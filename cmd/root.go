// Package cmd implements the scssc command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/illusionfield/scssc/internal/config"
	"github.com/illusionfield/scssc/internal/logging"
)

var RootCommand = &cobra.Command{
	Use:   "scssc",
	Short: "Compile Sass style sheets of an application and its packages",
	Long: `scssc compiles every root .scss and .sass file of an application and its
packages to CSS. Files named _*.scss or _*.sass are partials: they are only
compiled through the roots that import them. Packages are addressed in
imports as {name}/path, the application as {}/path.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

type logParams struct {
	level  logging.Level
	format string
}

var logs = logParams{level: logging.Info, format: "text"}

func init() {
	RootCommand.PersistentFlags().Var(
		enumflag.New(&logs.level, "level", logging.LevelIds, enumflag.EnumCaseInsensitive),
		"log-level", "log level (debug, info, warn, error)")
	RootCommand.PersistentFlags().StringVar(&logs.format, "log-format", logs.format, "log format (text, json)")
}

// newLogger returns the logger configured by the persistent flags. Debug mode
// forces debug output.
func newLogger() *logging.Logger {
	level := logs.level
	if config.DebugMode() {
		level = logging.Debug
	}
	return logging.NewLogger(logging.Config{Level: level, Format: logs.format, Output: os.Stderr})
}
