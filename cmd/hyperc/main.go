package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	generatecmd "github.com/hyper-lang/hyperc/cmd/hyperc/generate"
	servedaemon "github.com/hyper-lang/hyperc/cmd/hyperc/serve-daemon"
	watchcmd "github.com/hyper-lang/hyperc/cmd/hyperc/watch"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var debugLogs bool

	rootCmd := &cobra.Command{
		Use:   "hyperc",
		Short: "compile hyper templates to python modules",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if debugLogs {
			level = zerolog.DebugLevel
		}
		logger := zerolog.New(os.Stderr).Level(level).With().
			Timestamp().
			Logger()
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}

	rootCmd.AddCommand(generatecmd.NewGenerateCommand())
	rootCmd.AddCommand(servedaemon.NewServeDaemonCommand())
	rootCmd.AddCommand(watchcmd.NewWatchCommand())

	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
