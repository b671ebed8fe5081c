package model

import (
	"fmt"
	"strings"
)

// FileRole describes how an analysis method uses one of the two input file
// kinds (alignment, tree).
type FileRole int

const (
	FileUnused FileRole = iota
	FileOptional
	FileRequired
)

// String returns the role as a lowercase label
func (r FileRole) String() string {
	switch r {
	case FileRequired:
		return "required"
	case FileOptional:
		return "optional"
	default:
		return "unused"
	}
}

// ParamKind identifies the wire type of a method parameter
type ParamKind string

const (
	ParamString     ParamKind = "string"
	ParamNumber     ParamKind = "number"
	ParamInteger    ParamKind = "integer"
	ParamBoolean    ParamKind = "boolean"
	ParamStringList ParamKind = "string_list"
	ParamObjectList ParamKind = "object_list"
)

// ParamSpec describes one tunable parameter of an analysis method. Enum
// restricts string values; Min/Max restrict numeric values when set. A
// non-nil Default is always included in the payload when the caller omits
// the parameter.
type ParamSpec struct {
	Name        string
	Kind        ParamKind
	Description string
	Required    bool
	Default     interface{}
	Enum        []string
	Min         *float64
	Max         *float64
}

// MethodSpec describes one analysis method exposed by the Datamonkey API:
// its wire name (used in the /methods/{name}-start path), which input files
// it consumes, and its parameters.
type MethodSpec struct {
	Name        string
	FullName    string
	Description string
	Alignment   FileRole
	Tree        FileRole
	Params      []ParamSpec
}

func floatPtr(v float64) *float64 { return &v }

var methodCatalog = []MethodSpec{
	{
		Name:        "absrel",
		FullName:    "aBSREL (adaptive Branch-Site Random Effects Likelihood)",
		Description: "Test for episodic diversifying selection on specific branches",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "branches", Kind: ParamStringList, Description: "Branches to test (default: all branches)"},
			{Name: "srv", Kind: ParamString, Description: "Include synonymous rate variation", Default: "Yes", Enum: []string{"Yes", "No"}},
			{Name: "multiple_hits", Kind: ParamString, Description: "Specify handling of multiple nucleotide substitutions", Default: "None", Enum: []string{"None", "Double", "Double+Triple"}},
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
		},
	},
	{
		Name:        "bgm",
		FullName:    "BGM (Bayesian Graphical Model)",
		Description: "Detect correlated substitution patterns between sites",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "data_type", Kind: ParamString, Description: "Type of sequence data", Default: "codon", Enum: []string{"nucleotide", "amino-acid", "codon"}},
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "steps", Kind: ParamInteger, Description: "Number of MCMC steps to sample", Default: 100000},
			{Name: "burn_in", Kind: ParamInteger, Description: "Number of MCMC steps to discard as burn-in", Default: 10000},
			{Name: "samples", Kind: ParamInteger, Description: "Number of samples to extract from the chain", Default: 100},
			{Name: "max_parents", Kind: ParamInteger, Description: "Maximum number of parents allowed per node", Default: 1},
			{Name: "min_subs", Kind: ParamInteger, Description: "Minimum substitutions per site to include it", Default: 1},
		},
	},
	{
		Name:        "busted",
		FullName:    "BUSTED (Branch-Site Unrestricted Statistical Test for Episodic Diversification)",
		Description: "Test for gene-wide episodic diversifying selection",
		Alignment:   FileRequired,
		Tree:        FileOptional,
		Params: []ParamSpec{
			{Name: "branches", Kind: ParamStringList, Description: "Branches to test (default: all branches)"},
		},
	},
	{
		Name:        "contrast-fel",
		FullName:    "Contrast-FEL (Fixed Effects Likelihood contrast)",
		Description: "Test for differences in selection between predefined groups of branches",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "branch_sets", Kind: ParamStringList, Description: "Branch sets to compare", Required: true},
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "srv", Kind: ParamString, Description: "Include synonymous rate variation", Default: "Yes", Enum: []string{"Yes", "No"}},
			{Name: "permutations", Kind: ParamString, Description: "Perform permutation significance tests", Default: "Yes", Enum: []string{"Yes", "No"}},
			{Name: "p_value", Kind: ParamNumber, Description: "Significance value for site tests", Default: 0.05},
			{Name: "q_value", Kind: ParamNumber, Description: "Significance value for FDR reporting", Default: 0.20},
		},
	},
	{
		Name:        "fade",
		FullName:    "FADE (FUBAR Approach to Directional Evolution)",
		Description: "Detect directional selection in protein alignments",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "bayes_factor_threshold", Kind: ParamInteger, Description: "Bayes factor threshold for detection", Default: 100},
		},
	},
	{
		Name:        "fel",
		FullName:    "FEL (Fixed Effects Likelihood)",
		Description: "Detect pervasive site-level selection",
		Alignment:   FileRequired,
		Tree:        FileOptional,
		Params: []ParamSpec{
			{Name: "pvalue", Kind: ParamNumber, Description: "Significance value for site tests", Default: 0.1},
			{Name: "branches", Kind: ParamStringList, Description: "Branches to include (default: all branches)"},
		},
	},
	{
		Name:        "fubar",
		FullName:    "FUBAR (Fast Unconstrained Bayesian AppRoximation)",
		Description: "Detect pervasive selection with a fast Bayesian approach",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "grid_points", Kind: ParamInteger, Description: "Number of grid points", Default: 20, Min: floatPtr(5), Max: floatPtr(50)},
			{Name: "concentration_parameter", Kind: ParamNumber, Description: "Concentration parameter of the Dirichlet prior", Default: 0.5, Min: floatPtr(0.001), Max: floatPtr(1)},
		},
	},
	{
		Name:        "gard",
		FullName:    "GARD (Genetic Algorithm for Recombination Detection)",
		Description: "Screen an alignment for recombination breakpoints",
		Alignment:   FileRequired,
		Tree:        FileUnused,
		Params: []ParamSpec{
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "data_type", Kind: ParamString, Description: "Type of sequence data", Default: "Nucleotide", Enum: []string{"Nucleotide", "Protein"}},
			{Name: "run_mode", Kind: ParamString, Description: "Run mode trading speed for thoroughness", Default: "Normal", Enum: []string{"Normal", "Faster"}},
			{Name: "site_to_site_variation", Kind: ParamString, Description: "Model of site-to-site rate variation", Default: "None", Enum: []string{"None", "General Discrete", "Beta-Gamma"}},
			{Name: "rate_classes", Kind: ParamInteger, Description: "Number of rate classes for site variation", Default: 2},
			{Name: "model", Kind: ParamString, Description: "Substitution model for protein data", Default: "JTT"},
		},
	},
	{
		Name:        "meme",
		FullName:    "MEME (Mixed Effects Model of Evolution)",
		Description: "Detect episodic site-level selection",
		Alignment:   FileRequired,
		Tree:        FileOptional,
		Params: []ParamSpec{
			{Name: "pvalue", Kind: ParamNumber, Description: "Significance value for site tests", Default: 0.1},
			{Name: "branches", Kind: ParamStringList, Description: "Branches to include (default: all branches)"},
		},
	},
	{
		Name:        "multihit",
		FullName:    "MULTI-HIT (Multiple Hit detection)",
		Description: "Examine support for multiple simultaneous nucleotide substitutions",
		Alignment:   FileRequired,
		Tree:        FileUnused,
		Params: []ParamSpec{
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "triple_islands", Kind: ParamString, Description: "Use a separate rate for triple-hit islands", Default: "No", Enum: []string{"Yes", "No"}},
			{Name: "rate_classes", Kind: ParamInteger, Description: "Number of omega rate classes", Default: 3, Min: floatPtr(1), Max: floatPtr(10)},
		},
	},
	{
		Name:        "nrm",
		FullName:    "NRM (Non-Reversible Model)",
		Description: "Fit a general non-reversible nucleotide model",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "save_fit", Kind: ParamBoolean, Description: "Save the fitted model to the results", Default: false},
		},
	},
	{
		Name:        "relax",
		FullName:    "RELAX (Relaxation of selection)",
		Description: "Test for relaxation or intensification of selection between branch sets",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "test_branches", Kind: ParamStringList, Description: "Branches forming the test set"},
			{Name: "reference_branches", Kind: ParamStringList, Description: "Branches forming the reference set"},
			{Name: "models", Kind: ParamString, Description: "Which model set to fit", Default: "All", Enum: []string{"All", "Minimal"}},
			{Name: "rates", Kind: ParamInteger, Description: "Number of omega rate classes", Default: 3},
			{Name: "kill_zero_lengths", Kind: ParamString, Description: "Collapse zero-length branches before fitting", Default: "No", Enum: []string{"Yes", "No"}},
		},
	},
	{
		Name:        "slac",
		FullName:    "SLAC (Single-Likelihood Ancestor Counting)",
		Description: "Rapid counting-based detection of site-level selection",
		Alignment:   FileRequired,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "genetic_code", Kind: ParamString, Description: "Genetic code to use", Default: "Universal"},
			{Name: "branches", Kind: ParamString, Description: "Branch set to analyze", Default: "All"},
			{Name: "samples", Kind: ParamInteger, Description: "Number of ancestral samples for uncertainty", Default: 100, Min: floatPtr(1)},
			{Name: "pvalue", Kind: ParamNumber, Description: "Significance value for site tests", Default: 0.1, Min: floatPtr(0), Max: floatPtr(1)},
		},
	},
	{
		Name:        "slatkin",
		FullName:    "Slatkin-Maddison test",
		Description: "Test for compartmentalization between predefined groups of sequences",
		Alignment:   FileUnused,
		Tree:        FileRequired,
		Params: []ParamSpec{
			{Name: "groups", Kind: ParamInteger, Description: "Number of compartments", Default: 2, Min: floatPtr(2), Max: floatPtr(100)},
			{Name: "compartment_definitions", Kind: ParamObjectList, Description: "Compartment definitions as {description, regexp} objects"},
			{Name: "replicates", Kind: ParamInteger, Description: "Number of bootstrap replicates", Default: 1000, Min: floatPtr(1), Max: floatPtr(1000000)},
			{Name: "weight", Kind: ParamNumber, Description: "Relative weight of the structured null", Default: 0.2, Min: floatPtr(0), Max: floatPtr(1)},
			{Name: "use_bootstrap", Kind: ParamBoolean, Description: "Use bootstrap replicates for significance", Default: true},
		},
	},
}

// Methods returns the full analysis method catalog in stable order
func Methods() []MethodSpec {
	out := make([]MethodSpec, len(methodCatalog))
	copy(out, methodCatalog)
	return out
}

// MethodByName looks up a method by its wire name, case-insensitively
func MethodByName(name string) (MethodSpec, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, m := range methodCatalog {
		if m.Name == needle {
			return m, true
		}
	}
	return MethodSpec{}, false
}

// MethodNames returns the wire names of all catalog methods
func MethodNames() []string {
	names := make([]string, len(methodCatalog))
	for i, m := range methodCatalog {
		names[i] = m.Name
	}
	return names
}

// ValidateParams checks caller-supplied parameters against the method's
// parameter specs. Unknown names, missing required parameters, type
// mismatches, enum violations and out-of-range values are all rejected.
func (m MethodSpec) ValidateParams(params map[string]interface{}) error {
	specs := make(map[string]ParamSpec, len(m.Params))
	for _, p := range m.Params {
		specs[p.Name] = p
	}

	for name := range params {
		if _, ok := specs[name]; !ok {
			return fmt.Errorf("unknown parameter %q for method %s", name, m.Name)
		}
	}

	for _, p := range m.Params {
		value, present := params[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter %q for method %s", p.Name, m.Name)
			}
			continue
		}
		if _, err := p.normalize(value); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}

	return nil
}

// BuildPayload assembles the exact request body for the method's start
// endpoint: the file handles under "alignment" and "tree", caller parameters
// normalized to their wire types, and defaults for whatever the caller
// omitted. The returned map is what gets persisted on the job so the
// submission can be replayed verbatim.
func (m MethodSpec) BuildPayload(alignmentID, treeID string, params map[string]interface{}) (map[string]interface{}, error) {
	if err := m.ValidateParams(params); err != nil {
		return nil, err
	}

	payload := make(map[string]interface{})

	switch m.Alignment {
	case FileRequired:
		if alignmentID == "" {
			return nil, fmt.Errorf("method %s requires an alignment file", m.Name)
		}
		payload["alignment"] = alignmentID
	case FileOptional:
		if alignmentID != "" {
			payload["alignment"] = alignmentID
		}
	}

	switch m.Tree {
	case FileRequired:
		if treeID == "" {
			return nil, fmt.Errorf("method %s requires a tree file", m.Name)
		}
		payload["tree"] = treeID
	case FileOptional:
		if treeID != "" {
			payload["tree"] = treeID
		}
	}

	for _, p := range m.Params {
		value, present := params[p.Name]
		if !present {
			if p.Default != nil {
				payload[p.Name] = p.Default
			}
			continue
		}
		normalized, err := p.normalize(value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		payload[p.Name] = normalized
	}

	return payload, nil
}

// normalize coerces a caller-supplied value to the parameter's wire type
// and validates it against the declared range and enum constraints
func (p ParamSpec) normalize(value interface{}) (interface{}, error) {
	switch p.Kind {
	case ParamString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", value)
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			return nil, fmt.Errorf("invalid value %q (must be one of: %s)", s, strings.Join(p.Enum, ", "))
		}
		return s, nil

	case ParamNumber:
		n, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", value)
		}
		if err := p.checkRange(n); err != nil {
			return nil, err
		}
		return n, nil

	case ParamInteger:
		n, ok := toFloat(value)
		if !ok || n != float64(int64(n)) {
			return nil, fmt.Errorf("expected an integer, got %v", value)
		}
		if err := p.checkRange(n); err != nil {
			return nil, err
		}
		return int64(n), nil

	case ParamBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", value)
		}
		return b, nil

	case ParamStringList:
		list, err := toStringList(value)
		if err != nil {
			return nil, err
		}
		return list, nil

	case ParamObjectList:
		list, ok := value.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected a list of objects, got %T", value)
		}
		for i, item := range list {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("element %d: expected an object, got %T", i, item)
			}
			if _, ok := obj["description"].(string); !ok {
				return nil, fmt.Errorf("element %d: missing string field \"description\"", i)
			}
			if _, ok := obj["regexp"].(string); !ok {
				return nil, fmt.Errorf("element %d: missing string field \"regexp\"", i)
			}
		}
		return list, nil

	default:
		return nil, fmt.Errorf("unsupported parameter kind %q", p.Kind)
	}
}

func (p ParamSpec) checkRange(n float64) error {
	if p.Min != nil && n < *p.Min {
		return fmt.Errorf("value %v below minimum %v", n, *p.Min)
	}
	if p.Max != nil && n > *p.Max {
		return fmt.Errorf("value %v above maximum %v", n, *p.Max)
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// toStringList accepts a JSON array of strings or a comma-separated string
// and normalizes both to a []string
func toStringList(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected a string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", value)
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
