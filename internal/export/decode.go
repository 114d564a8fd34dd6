package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roach88/portmatch/internal/ir"
)

//go:embed schema.json
var schemaSource string

const schemaURL = "https://portmatch.local/schemas/session-export.schema.json"

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader([]byte(schemaSource))); err != nil {
		return nil, fmt.Errorf("export schema load failed: %w", err)
	}
	return c.Compile(schemaURL)
})

// SchemaSource returns the JSON Schema of the export document.
func SchemaSource() string {
	return schemaSource
}

// ValidateDocument checks encoded bytes against the export JSON Schema.
func ValidateDocument(data []byte) error {
	schema, err := documentSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("parse export document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("export document violates schema: %w", err)
	}
	return nil
}

// Decode validates and parses an export document, then checks that its
// transitions are in sequence order.
func Decode(data []byte) (ir.Document, error) {
	if err := ValidateDocument(data); err != nil {
		return ir.Document{}, err
	}

	var doc ir.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ir.Document{}, fmt.Errorf("decode export document: %w", err)
	}

	var prev int64
	for _, t := range doc.Transitions {
		if t.Seq <= prev {
			return ir.Document{}, ir.NewExportIntegrity(t.Seq, prev)
		}
		prev = t.Seq
	}
	return doc, nil
}
