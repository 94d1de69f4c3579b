package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete the local build directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.RemoveAll(rt.cfg.Dev.BuildDir); err != nil {
				return fmt.Errorf("remove %s: %w", rt.cfg.Dev.BuildDir, err)
			}
			rt.logger.Info("Removed build directory", zap.String("path", rt.cfg.Dev.BuildDir))
			return nil
		},
	}
}
