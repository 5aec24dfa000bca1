package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/sqlbatch/internal/config"
	"github.com/rshade/sqlbatch/internal/logging"
)

// setupLogging configures logging from the loaded config and the --debug flag,
// and attaches the logger and a fresh run ID to the command context.
func setupLogging(cmd *cobra.Command) logging.LogPathResult {
	loggingCfg := config.GetLoggingConfig()

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.File = ""
	}

	if loggingCfg.File != "" {
		if err := config.EnsureLogDir(loggingCfg.File); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	result := logging.NewLoggerWithPath(loggingCfg.ToLoggingConfig())
	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	runID := logging.GetOrGenerateRunID(ctx)
	ctx = logging.ContextWithRunID(ctx, runID)

	base := result.Logger.With().Str("run_id", runID).Logger()
	logger = logging.ComponentLogger(base, "cli")
	ctx = base.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Info().Str("command", cmd.Name()).Msg("command started")

	return result
}

// cleanupLogging closes the log file handle, if any.
func cleanupLogging(cmd *cobra.Command, logResult *logging.LogPathResult) error {
	logger.Info().Str("command", cmd.Name()).Msg("command finished")
	if logResult != nil {
		return logResult.Close()
	}
	return nil
}
