package model

import (
	"reflect"
	"strings"
	"testing"
)

func TestMethodByName(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
		found bool
	}{
		{name: "exact", query: "fel", want: "fel", found: true},
		{name: "uppercase", query: "FEL", want: "fel", found: true},
		{name: "padded", query: " busted ", want: "busted", found: true},
		{name: "hyphenated", query: "contrast-fel", want: "contrast-fel", found: true},
		{name: "unknown", query: "prime", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := MethodByName(tt.query)
			if ok != tt.found {
				t.Fatalf("MethodByName(%q) found = %v, want %v", tt.query, ok, tt.found)
			}
			if ok && m.Name != tt.want {
				t.Errorf("MethodByName(%q) = %q, want %q", tt.query, m.Name, tt.want)
			}
		})
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		params  map[string]interface{}
		wantErr string
	}{
		{
			name:   "empty params are valid",
			method: "fel",
			params: map[string]interface{}{},
		},
		{
			name:    "unknown parameter",
			method:  "fel",
			params:  map[string]interface{}{"bootstrap": true},
			wantErr: "unknown parameter",
		},
		{
			name:    "missing required parameter",
			method:  "contrast-fel",
			params:  map[string]interface{}{},
			wantErr: "missing required parameter",
		},
		{
			name:   "required parameter present",
			method: "contrast-fel",
			params: map[string]interface{}{"branch_sets": "set1,set2"},
		},
		{
			name:    "enum violation",
			method:  "absrel",
			params:  map[string]interface{}{"srv": "Maybe"},
			wantErr: "must be one of",
		},
		{
			name:    "below range",
			method:  "fubar",
			params:  map[string]interface{}{"grid_points": 4},
			wantErr: "below minimum",
		},
		{
			name:    "above range",
			method:  "fubar",
			params:  map[string]interface{}{"grid_points": 51},
			wantErr: "above maximum",
		},
		{
			name:    "integer rejects fraction",
			method:  "multihit",
			params:  map[string]interface{}{"rate_classes": 2.5},
			wantErr: "expected an integer",
		},
		{
			name:   "integer accepts json float",
			method: "multihit",
			params: map[string]interface{}{"rate_classes": float64(4)},
		},
		{
			name:    "boolean type mismatch",
			method:  "slatkin",
			params:  map[string]interface{}{"use_bootstrap": "yes"},
			wantErr: "expected a boolean",
		},
		{
			name:   "object list accepted",
			method: "slatkin",
			params: map[string]interface{}{
				"compartment_definitions": []interface{}{
					map[string]interface{}{"description": "host A", "regexp": "^A_"},
				},
			},
		},
		{
			name:   "object list missing field",
			method: "slatkin",
			params: map[string]interface{}{
				"compartment_definitions": []interface{}{
					map[string]interface{}{"description": "host A"},
				},
			},
			wantErr: "regexp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := MethodByName(tt.method)
			if !ok {
				t.Fatalf("method %q not in catalog", tt.method)
			}

			err := m.ValidateParams(tt.params)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateParams() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateParams() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateParams() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildPayload(t *testing.T) {
	t.Run("defaults fill omitted parameters", func(t *testing.T) {
		m, _ := MethodByName("fel")
		payload, err := m.BuildPayload("hash-a", "", map[string]interface{}{})
		if err != nil {
			t.Fatalf("BuildPayload() error = %v", err)
		}
		if payload["alignment"] != "hash-a" {
			t.Errorf("alignment = %v, want hash-a", payload["alignment"])
		}
		if payload["pvalue"] != 0.1 {
			t.Errorf("pvalue = %v, want 0.1", payload["pvalue"])
		}
		if _, ok := payload["tree"]; ok {
			t.Error("optional tree should be omitted when no handle is given")
		}
		if _, ok := payload["branches"]; ok {
			t.Error("branches has no default and should be omitted")
		}
	})

	t.Run("missing required alignment", func(t *testing.T) {
		m, _ := MethodByName("busted")
		if _, err := m.BuildPayload("", "", nil); err == nil {
			t.Fatal("BuildPayload() error = nil, want alignment requirement error")
		}
	})

	t.Run("missing required tree", func(t *testing.T) {
		m, _ := MethodByName("absrel")
		if _, err := m.BuildPayload("hash-a", "", nil); err == nil {
			t.Fatal("BuildPayload() error = nil, want tree requirement error")
		}
	})

	t.Run("slatkin takes only a tree", func(t *testing.T) {
		m, _ := MethodByName("slatkin")
		payload, err := m.BuildPayload("", "hash-t", map[string]interface{}{"groups": 3})
		if err != nil {
			t.Fatalf("BuildPayload() error = %v", err)
		}
		if _, ok := payload["alignment"]; ok {
			t.Error("slatkin payload should not carry an alignment")
		}
		if payload["tree"] != "hash-t" {
			t.Errorf("tree = %v, want hash-t", payload["tree"])
		}
		if payload["groups"] != int64(3) {
			t.Errorf("groups = %v (%T), want int64(3)", payload["groups"], payload["groups"])
		}
		if payload["replicates"] != 1000 {
			t.Errorf("replicates default = %v, want 1000", payload["replicates"])
		}
	})

	t.Run("comma string normalizes to list", func(t *testing.T) {
		m, _ := MethodByName("contrast-fel")
		payload, err := m.BuildPayload("hash-a", "hash-t", map[string]interface{}{
			"branch_sets": "set1, set2",
		})
		if err != nil {
			t.Fatalf("BuildPayload() error = %v", err)
		}
		want := []string{"set1", "set2"}
		if !reflect.DeepEqual(payload["branch_sets"], want) {
			t.Errorf("branch_sets = %v, want %v", payload["branch_sets"], want)
		}
	})

	t.Run("json array normalizes to list", func(t *testing.T) {
		m, _ := MethodByName("relax")
		payload, err := m.BuildPayload("hash-a", "hash-t", map[string]interface{}{
			"test_branches": []interface{}{"Node1", "Node2"},
		})
		if err != nil {
			t.Fatalf("BuildPayload() error = %v", err)
		}
		want := []string{"Node1", "Node2"}
		if !reflect.DeepEqual(payload["test_branches"], want) {
			t.Errorf("test_branches = %v, want %v", payload["test_branches"], want)
		}
	})

	t.Run("validation failure surfaces", func(t *testing.T) {
		m, _ := MethodByName("slac")
		if _, err := m.BuildPayload("hash-a", "hash-t", map[string]interface{}{"samples": 0}); err == nil {
			t.Fatal("BuildPayload() error = nil, want range error")
		}
	})
}

func TestCatalogShape(t *testing.T) {
	methods := Methods()
	if len(methods) != 14 {
		t.Fatalf("catalog has %d methods, want 14", len(methods))
	}

	seen := make(map[string]bool)
	for _, m := range methods {
		if m.Name != strings.ToLower(m.Name) {
			t.Errorf("method %q: wire names must be lowercase", m.Name)
		}
		if seen[m.Name] {
			t.Errorf("method %q appears twice", m.Name)
		}
		seen[m.Name] = true

		if m.Alignment == FileUnused && m.Tree == FileUnused {
			t.Errorf("method %q consumes no input files", m.Name)
		}
	}
}
