package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/seaward/offer-service/internal/parsers/charset"
	"github.com/seaward/offer-service/internal/types"
)

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readOffers accepts either a JSON array of offers or {"offers": [...]}
func readOffers(path string) ([]types.Offer, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if data, err = charset.ToUTF8(data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decodeOffers(data)
}

func decodeOffers(data []byte) ([]types.Offer, error) {
	var offers []types.Offer
	if err := json.Unmarshal(data, &offers); err == nil {
		return offers, nil
	}

	var wrapped struct {
		Offers []types.Offer `json:"offers"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return wrapped.Offers, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
