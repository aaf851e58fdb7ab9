package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/wasmdemo/pkg/protocol"
)

const (
	textFormat = "text"
	jsonFormat = "json"
	yamlFormat = "yaml"
)

func validFormat(format string) bool {
	switch format {
	case textFormat, jsonFormat, yamlFormat:
		return true
	}
	return false
}

// render writes v in the configured format. text is the plain rendering.
func render(cmd *cobra.Command, format string, v any, text string) error {
	w := cmd.OutOrStdout()
	switch format {
	case jsonFormat:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case yamlFormat:
		b, err := marshalYAML(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		_, err := fmt.Fprintln(w, text)
		return err
	}
}

// marshalYAML goes through JSON so protocol.Float keeps its NaN and Inf
// spelling and field names match the JSON output.
func marshalYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

func renderArtifacts(cmd *cobra.Command, format string, infos []protocol.ArtifactInfo) error {
	if format != textFormat {
		return render(cmd, format, infos, "")
	}
	writeArtifactTable(cmd.OutOrStdout(), infos)
	return nil
}

func writeArtifactTable(w io.Writer, infos []protocol.ArtifactInfo) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Name", "Version", "Library", "Exports", "Size", "Source"})
	for _, info := range infos {
		tw.AppendRow(table.Row{
			info.Name,
			info.Version,
			info.Library,
			strings.Join(info.Exports, ", "),
			info.SizeBytes,
			info.Source,
		})
	}
	tw.Render()
}
