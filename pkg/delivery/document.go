package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawNode is a resource exactly as delivered: a sys block and a fields object
// whose values may hold link stubs at any depth.
type RawNode struct {
	Sys    Sys            `json:"sys"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Includes is the side list of referenced resources delivered with a page.
type Includes struct {
	Entry []RawNode `json:"Entry,omitempty"`
	Asset []RawNode `json:"Asset,omitempty"`
}

// ServerError is an error object reported inside a successful collection
// response, typically a link the service could not resolve.
type ServerError struct {
	Sys     LinkSys            `json:"sys"`
	Details ServerErrorDetails `json:"details"`
}

// ServerErrorDetails identifies the link a ServerError refers to.
type ServerErrorDetails struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
}

// Document is a parsed collection response. It is never modified by the
// resolver.
type Document struct {
	Sys      *Sys          `json:"sys,omitempty"`
	Skip     int           `json:"skip"`
	Limit    int           `json:"limit"`
	Total    int           `json:"total"`
	Items    []RawNode     `json:"items"`
	Includes Includes      `json:"includes"`
	Errors   []ServerError `json:"errors,omitempty"`
}

// ParseDocument decodes a collection response. A single-resource response
// (no items array) is accepted and returned as a one-item document. Numbers
// are kept as json.Number so that integer precision survives hydration.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	err := decoder.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.Items != nil {
		return &doc, nil
	}

	if doc.Sys == nil || doc.Sys.ID == "" {
		return nil, fmt.Errorf("%w: no items and no resource sys", ErrInvalidDocument)
	}

	var node RawNode

	decoder = json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	err = decoder.Decode(&node)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &Document{
		Limit: 1,
		Total: 1,
		Items: []RawNode{node},
	}, nil
}

// linkKey reports whether value is a link stub to an Entry or Asset and
// returns the key of its target.
func linkKey(value map[string]any) (Key, bool) {
	if len(value) != 1 {
		return Key{}, false
	}

	sys, ok := value["sys"].(map[string]any)
	if !ok {
		return Key{}, false
	}

	if sysType, _ := sys["type"].(string); sysType != TypeLink {
		return Key{}, false
	}

	linkType, _ := sys["linkType"].(string)
	if linkType != LinkTypeEntry && linkType != LinkTypeAsset {
		return Key{}, false
	}

	id, _ := sys["id"].(string)
	if id == "" {
		return Key{}, false
	}

	return Key{LinkType: linkType, ID: id}, true
}
