package service

import (
	"strings"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseModelJSON_Plain(t *testing.T) {
	var p payload
	if err := ParseModelJSON(`{"name": "a", "count": 2}`, &p); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if p.Name != "a" || p.Count != 2 {
		t.Errorf("got %+v", p)
	}
}

func TestParseModelJSON_CodeFences(t *testing.T) {
	cases := []string{
		"```json\n{\"name\": \"a\", \"count\": 2}\n```",
		"```\n{\"name\": \"a\", \"count\": 2}\n```",
		"```JSON\n{\"name\": \"a\", \"count\": 2}\n```",
	}
	for _, raw := range cases {
		var p payload
		if err := ParseModelJSON(raw, &p); err != nil {
			t.Errorf("parse failed for %q: %v", raw, err)
			continue
		}
		if p.Name != "a" {
			t.Errorf("got %+v for %q", p, raw)
		}
	}
}

func TestParseModelJSON_SalvagesSurroundingProse(t *testing.T) {
	raw := `Sure! Here is the JSON you asked for:
{"name": "salvaged", "count": 7}
Let me know if you need anything else.`

	var p payload
	if err := ParseModelJSON(raw, &p); err != nil {
		t.Fatalf("salvage failed: %v", err)
	}
	if p.Name != "salvaged" || p.Count != 7 {
		t.Errorf("got %+v", p)
	}
}

func TestParseModelJSON_InvalidFails(t *testing.T) {
	var p payload
	err := ParseModelJSON("this is not json at all", &p)
	if err == nil {
		t.Fatal("expected error for non-JSON input")
	}
	if !strings.Contains(err.Error(), "valid JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseModelJSON_BrokenBracesFail(t *testing.T) {
	var p payload
	if err := ParseModelJSON(`{"name": "a", `, &p); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
