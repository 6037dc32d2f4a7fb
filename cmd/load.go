package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spaghettifunk/texstream/engine"
	"github.com/spf13/cobra"
)

var loadTimeout time.Duration

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <scene.toml>",
	Short: "Load every texture of a scene",
	Long: `Loads every texture referenced by the materials of a scene and reports
how long the scene took and which stage each texture ended in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// a one shot load does not need to follow the asset tree
		cfg.Assets.Watch = false

		e, err := engine.New(cfg)
		if err != nil {
			return err
		}
		if err := e.Initialize(); err != nil {
			return err
		}
		defer e.Shutdown()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if loadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, loadTimeout)
			defer cancel()
		}

		s, elapsed, err := e.LoadScene(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scene %s loaded in %s\n", s.Name, elapsed)
		for _, m := range s.Materials() {
			for _, slot := range m.Slots {
				t := slot.Map.Texture()
				fmt.Fprintf(out, "  %s.%s: %s %dx%d (%s)\n", m.Name, slot.Name, t.Name, t.Width, t.Height, t.Origin)
			}
		}
		m := e.Metrics()
		fmt.Fprintf(out, "pipelines %d, stage failures %v, published %d\n", m.PipelinesFinished, m.StageFailures, m.ContentPublished)
		return nil
	},
}

func init() {
	loadCmd.Flags().DurationVar(&loadTimeout, "timeout", 0, "give up after this long (0 waits forever)")
	RootCmd.AddCommand(loadCmd)
}
