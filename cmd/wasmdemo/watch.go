package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woxQAQ/wasmdemo/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload artifacts when their module or manifest changes.",
		Long: `Watch every loaded artifact directory and recompile an artifact after its
.wasm file or artifact.yaml is rewritten. Each reload prints the artifact's
new description. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, a)
		},
	}
}

func runWatch(cmd *cobra.Command, a *app) error {
	h, err := a.openHost(cmd)
	if err != nil {
		return err
	}
	defer h.Close(cmd.Context())

	w, err := watch.New(a.cfg.ArtifactPaths, a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("Watching artifacts", zap.Strings("dirs", w.Dirs()))

	g, ctx := errgroup.WithContext(cmd.Context())
	changed := make(chan string)

	g.Go(func() error {
		return w.Run(ctx, func(dir string) {
			select {
			case changed <- dir:
			case <-ctx.Done():
			}
		})
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case dir := <-changed:
				art, err := h.Reload(ctx, dir)
				if err != nil {
					// A half-written module is common while a build runs.
					a.logger.Warn("Failed to reload artifact", zap.String("dir", dir), zap.Error(err))
					continue
				}
				info := artifactInfo(art)
				text := fmt.Sprintf("reloaded %s %s (%d bytes)", info.Name, info.Version, info.SizeBytes)
				if err := render(cmd, a.cfg.Output, info, text); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}
