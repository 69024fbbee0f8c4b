// Package respparse recovers JSON objects from free-form model output.
package respparse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsingErrorMessage is set on the sentinel result when no strategy succeeds.
const ParsingErrorMessage = "Failed to extract valid JSON from LLM response"

// Strategy locates a JSON candidate in raw model output.
type Strategy struct {
	Name    string
	Extract func(raw string) (string, bool)
}

var bracePattern = regexp.MustCompile(`(?s)\{.*\}`)

// DefaultStrategies are tried in order: the whole text, a ```json fence, a
// generic ``` fence, then the widest {...} span.
var DefaultStrategies = []Strategy{
	{Name: "whole_text", Extract: wholeText},
	{Name: "json_fence", Extract: jsonFence},
	{Name: "generic_fence", Extract: genericFence},
	{Name: "brace_span", Extract: braceSpan},
}

// Parser applies strategies in order until one yields a JSON object.
type Parser struct {
	strategies []Strategy
}

// New creates a Parser with the default strategies followed by extra ones.
func New(extra ...Strategy) *Parser {
	s := make([]Strategy, 0, len(DefaultStrategies)+len(extra))
	s = append(s, DefaultStrategies...)
	s = append(s, extra...)
	return &Parser{strategies: s}
}

var defaultParser = New()

// Parse runs the default parser.
func Parse(raw string) map[string]any {
	return defaultParser.Parse(raw)
}

// Parse never fails: when nothing decodes it returns a mapping holding the raw
// text under raw_response and ParsingErrorMessage under parsing_error.
func (p *Parser) Parse(raw string) map[string]any {
	for _, s := range p.strategies {
		if obj, ok := try(s, raw); ok {
			return obj
		}
	}
	return map[string]any{
		"raw_response":  raw,
		"parsing_error": ParsingErrorMessage,
	}
}

// IsFailure reports whether m is the sentinel produced by a failed parse.
func IsFailure(m map[string]any) bool {
	_, ok := m["parsing_error"]
	return ok
}

func try(s Strategy, raw string) (obj map[string]any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			obj, ok = nil, false
		}
	}()
	candidate, found := s.Extract(raw)
	if !found {
		return nil, false
	}
	return decodeObject(candidate)
}

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func wholeText(raw string) (string, bool) {
	return strings.TrimSpace(raw), true
}

func jsonFence(raw string) (string, bool) {
	body, ok := fenced(raw, "```json")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(body), true
}

func genericFence(raw string) (string, bool) {
	body, ok := fenced(raw, "```")
	if !ok {
		return "", false
	}
	// Skip a language tag such as "JSON" or "javascript" on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		first := strings.TrimSpace(body[:nl])
		if first != "" && !strings.ContainsAny(first, "{[") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body), true
}

// fenced returns the text between marker and the next ``` (or the end of raw
// when the fence is never closed).
func fenced(raw, marker string) (string, bool) {
	i := strings.Index(raw, marker)
	if i < 0 {
		return "", false
	}
	rest := raw[i+len(marker):]
	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end], true
	}
	return rest, true
}

func braceSpan(raw string) (string, bool) {
	m := bracePattern.FindString(raw)
	return m, m != ""
}
