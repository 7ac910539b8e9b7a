package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	// OutputFormatText prints a short human summary where a command has one
	// and YAML otherwise.
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// globalOutputFormat is set by the root command's --output flag.
var globalOutputFormat = OutputFormatText

// SetOutputFormat sets the global output format.
func SetOutputFormat(format string) error {
	switch f := OutputFormat(format); f {
	case OutputFormatText, OutputFormatYAML, OutputFormatJSON:
		globalOutputFormat = f
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, yaml or json)", format)
	}
}

// IsStructuredOutput reports whether commands should print machine-readable
// data instead of their summary line.
func IsStructuredOutput() bool {
	return globalOutputFormat != OutputFormatText
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, globalOutputFormat, data)
}

// OutputTo writes data to w. Text falls back to YAML.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(data)
	case OutputFormatYAML, OutputFormatText:
		// Round-trip through JSON so the json tags used on the wire also
		// name the YAML keys.
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
