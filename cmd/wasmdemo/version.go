package main

import (
	"github.com/spf13/cobra"

	"github.com/woxQAQ/wasmdemo/pkg/ebur128"
	"github.com/woxQAQ/wasmdemo/pkg/protocol"
	"github.com/woxQAQ/wasmdemo/pkg/version"
)

func newVersionCmd(a *app) *cobra.Command {
	var (
		artifactName string
		native       bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the loudness library version reported by a guest.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				t    version.Triple
				name string
				err  error
			)
			if native {
				t, err = version.Query(ebur128.Library{})
			} else {
				h, openErr := a.openHost(cmd)
				if openErr != nil {
					return openErr
				}
				defer h.Close(cmd.Context())
				t, name, err = h.Version(cmd.Context(), artifactName)
			}
			if err != nil {
				return err
			}

			result := protocol.VersionResult{
				Artifact: name,
				Version:  t.String(),
				Major:    t.Major,
				Minor:    t.Minor,
				Patch:    t.Patch,
			}
			return render(cmd, a.cfg.Output, result, result.Version)
		},
	}

	cmd.Flags().StringVarP(&artifactName, "artifact", "a", "", "Artifact to call (default: first artifact exporting get_version)")
	cmd.Flags().BoolVar(&native, "native", false, "Use the Go implementation instead of a Wasm guest")
	return cmd
}
