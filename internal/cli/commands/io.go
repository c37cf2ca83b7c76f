package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	formcompiler "github.com/goliatone/go-formcompiler"
)

// readData loads submitted values from a JSON or YAML file. "-" reads
// stdin and an empty path yields no values.
func readData(cmd *cobra.Command, path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", path, err)
	}

	out := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") || trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode data %s: %w", path, err)
		}
		return out, nil
	}
	if err := yaml.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode data %s: %w", path, err)
	}
	return out, nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(value)
}

func writeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}

func writeFormatted(w io.Writer, format string, value any) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, value)
	case "yaml", "yml", "":
		return writeYAML(w, value)
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}

// reportErrors prints one red line per error, prefixed by source when set.
func reportErrors(w io.Writer, source string, errs []formcompiler.ValidationError) {
	red := color.New(color.FgRed)
	for _, e := range errs {
		prefix := ""
		if source != "" {
			prefix = source + ": "
		}
		red.Fprintf(w, "%s%s -> %s [%s]\n", prefix, e.Field, e.Message, e.Code)
	}
}
