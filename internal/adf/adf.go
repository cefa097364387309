// Package adf decodes Atlassian Document Format trees and flattens them to
// plain text suitable for model prompts.
package adf

import "encoding/json"

// Node represents a node in the Atlassian Document Format.
type Node struct {
	Type    string         `json:"type"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark represents an inline formatting mark in ADF.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// IsDocument reports whether v looks like a decoded ADF document, i.e. a
// JSON object with "type": "doc".
func IsDocument(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	t, _ := m["type"].(string)
	return t == "doc"
}

// FromValue converts a generically decoded JSON value (as produced by
// encoding/json into any) back into a Node tree.
func FromValue(v any) (*Node, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Node) attrString(key string) string {
	if v, ok := n.Attrs[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
