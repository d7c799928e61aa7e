// Command schemagen emits JSON schemas for the websocket wire format so
// client implementations can validate frames without hand-maintaining the
// contract.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/lobbyd/lobbyd/internal/protocol"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schemas := map[string]*jsonschema.Schema{
		"client_message.json": buildSchema(new(protocol.ClientMessage),
			"Client Message", "Frames a client may send to the gateway"),
		"server_message.json": buildSchema(new(protocol.ServerMessage),
			"Server Message", "Frames the gateway may send to a client"),
	}

	for name, schema := range schemas {
		if err := writeSchema(filepath.Join(outDir, name), schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
			os.Exit(1)
		}
	}
}

func buildSchema(v any, title, description string) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(v)
	schema.Title = title
	schema.Description = description
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
