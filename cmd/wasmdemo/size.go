package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/woxQAQ/wasmdemo/pkg/geometry"
	"github.com/woxQAQ/wasmdemo/pkg/protocol"
)

func newSizeCmd(a *app) *cobra.Command {
	var (
		artifactName string
		native       bool
	)

	cmd := &cobra.Command{
		Use:   "size <x> <y>",
		Short: "Compute the length of the vector (x, y).",
		Long: `Compute sqrt(x*x + y*y). NaN, Inf and -Inf are accepted as inputs.
Pass negative numbers after "--", for example: wasmdemo size -- -3 4`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := parseCoordinate("x", args[0])
			if err != nil {
				return err
			}
			y, err := parseCoordinate("y", args[1])
			if err != nil {
				return err
			}

			result := protocol.SizeResult{X: protocol.Float(x), Y: protocol.Float(y)}
			if native {
				result.Size = protocol.Float(geometry.Size(x, y))
			} else {
				h, err := a.openHost(cmd)
				if err != nil {
					return err
				}
				defer h.Close(cmd.Context())

				size, name, err := h.Size(cmd.Context(), artifactName, x, y)
				if err != nil {
					return err
				}
				result.Artifact = name
				result.Size = protocol.Float(size)
			}

			return render(cmd, a.cfg.Output, result, result.Size.String())
		},
	}

	cmd.Flags().StringVarP(&artifactName, "artifact", "a", "", "Artifact to call (default: first artifact exporting size)")
	cmd.Flags().BoolVar(&native, "native", false, "Use the Go implementation instead of a Wasm guest")
	return cmd
}

func parseCoordinate(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}
