// Schema Generator
//
// Generates JSON Schema files from the offer service's Go types so that the browser
// extension and other clients can validate what they send and receive.
//
// Usage:
//
//	go run cmd/schema-gen/main.go [output-dir]
//
// Output:
//
//	schemas/offers.json
//	schemas/itinerary.json
//	schemas/filter.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/seaward/offer-service/internal/filter"
	"github.com/seaward/offer-service/internal/handlers"
	"github.com/seaward/offer-service/internal/itinerary"
	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

var moneyType = reflect.TypeOf(types.Money{})

func main() {
	outputDir := "schemas"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range schemaGroups() {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

func schemaGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "offers",
			Types: []any{
				// Request types
				types.Offer{},
				handlers.IngestRequest{},
				handlers.ValueRequest{},
				// Response types
				handlers.IngestResponse{},
				pricing.Estimate{},
			},
			Output: "offers.json",
		},
		{
			Name: "itinerary",
			Types: []any{
				// Request types
				handlers.HydrateRequest{},
				// Response types
				types.CacheEntry{},
				types.PricingDerived{},
				handlers.SailingResponse{},
				itinerary.HydrationReport{},
				itinerary.Stats{},
			},
			Output: "itinerary.json",
		},
		{
			Name: "filter",
			Types: []any{
				// Request types
				filter.Predicate{},
				filter.State{},
				handlers.FilterRequest{},
				handlers.HiddenGroupRequest{},
				// Response types
				handlers.FilterResponse{},
			},
			Output: "filter.json",
		},
	}
}

// mapType describes types whose JSON form differs from their Go shape
func mapType(t reflect.Type) *jsonschema.Schema {
	if t == moneyType {
		return &jsonschema.Schema{
			Description: "Per-person amount: a number, a formatted string, or null when unknown",
			OneOf: []*jsonschema.Schema{
				{Type: "number"},
				{Type: "string"},
				{Type: "null"},
			},
		}
	}
	return nil
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: false,
		ExpandedStruct: false,
		Mapper:         mapType,
	}

	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)

		typeName := ""
		if schema.Ref != "" {
			// "#/$defs/CacheEntry" -> "CacheEntry"
			typeName = filepath.Base(schema.Ref)
		}

		for name, def := range schema.Definitions {
			definitions[name] = def
		}

		if typeName != "" && schema.Definitions[typeName] != nil {
			definitions[typeName] = schema.Definitions[typeName]
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://seaward.dev/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
