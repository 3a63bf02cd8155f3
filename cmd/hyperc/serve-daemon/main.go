package servedaemon

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/hyper-lang/hyperc/pkg/daemon"
)

type Handler struct {
}

func NewServeDaemonCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "serve compile requests over stdin/stdout",
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	server := daemon.NewServer(os.Stdin, os.Stdout)
	if err := server.Run(ctx); err != nil {
		return errors.Errorf("error running daemon: %w", err)
	}
	return nil
}
