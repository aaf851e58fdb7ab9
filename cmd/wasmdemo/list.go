package main

import (
	"github.com/spf13/cobra"

	"github.com/woxQAQ/wasmdemo/internal/artifact"
	"github.com/woxQAQ/wasmdemo/pkg/protocol"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded artifacts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.openHost(cmd)
			if err != nil {
				return err
			}
			defer h.Close(cmd.Context())

			artifacts := h.Artifacts()
			infos := make([]protocol.ArtifactInfo, 0, len(artifacts))
			for _, art := range artifacts {
				infos = append(infos, artifactInfo(art))
			}
			return renderArtifacts(cmd, a.cfg.Output, infos)
		},
	}
}

func artifactInfo(a *artifact.Artifact) protocol.ArtifactInfo {
	return protocol.ArtifactInfo{
		Name:        a.Name(),
		Version:     a.Version(),
		Library:     a.Library(),
		Description: a.Manifest.Description,
		Exports:     a.Exports(),
		Source:      a.Manifest.Dir(),
		SizeBytes:   a.Compiled.SizeBytes,
	}
}
