package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	invoiceapp "github.com/invoicegen/backend/internal/application/invoice"
	"gopkg.in/yaml.v3"
)

// loadDraft reads a generate request from a YAML or JSON file.
// Unknown keys are rejected so that typos do not silently drop fields.
func loadDraft(path string) (invoiceapp.GenerateRequest, error) {
	var req invoiceapp.GenerateRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read draft: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parse draft %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parse draft %s: %w", path, err)
		}
	}
	return req, nil
}
