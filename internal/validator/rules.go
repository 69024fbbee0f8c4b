package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"actflow/internal/actdata"
	"actflow/internal/jsonmap"
)

// RequiredFieldsRule reports every configured field absent from the data.
type RequiredFieldsRule struct{}

func (RequiredFieldsRule) RuleKey() string { return "required_fields" }

func (RequiredFieldsRule) Applies(opts Options) bool { return len(opts.RequiredFields) > 0 }

func (RequiredFieldsRule) Check(data map[string]any, opts Options) []string {
	var out []string
	for _, field := range opts.RequiredFields {
		if _, ok := data[field]; !ok {
			out = append(out, "Missing required field: "+field)
		}
	}
	return out
}

var (
	itemNumericFields  = []string{"quantity", "unit_price", "total_cost"}
	totalNumericFields = []string{"total_cost", "quantity"}
)

// NumericRule checks that act amounts are plain decimals. A present key
// holding null is reported like any other invalid value.
type NumericRule struct{}

func (NumericRule) RuleKey() string { return "numeric_verification" }

func (NumericRule) Applies(opts Options) bool { return opts.VerificationEnabled }

func (NumericRule) Check(data map[string]any, _ Options) []string {
	act := jsonmap.GetMap(data, "act")
	if act == nil {
		return nil
	}

	var out []string
	for i, raw := range jsonmap.GetSlice(act, "items") {
		item, ok := jsonmap.Map(raw)
		if !ok {
			continue
		}
		for _, field := range itemNumericFields {
			v, present := item[field]
			if !present || actdata.IsDecimal(v) {
				continue
			}
			out = append(out, fmt.Sprintf("Invalid numeric value in act.items[%d].%s: %s", i, field, display(v)))
		}
	}

	total := jsonmap.GetMap(act, "total")
	if total == nil {
		total = jsonmap.GetMap(act, "totals")
	}
	for _, field := range totalNumericFields {
		v, present := total[field]
		if !present || actdata.IsDecimal(v) {
			continue
		}
		out = append(out, fmt.Sprintf("Invalid numeric value in act.total.%s: %s", field, display(v)))
	}
	return out
}

func display(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// SchemaRule validates the data against the bundle's output_schema.
// Compiled schemas are cached by their source text.
type SchemaRule struct {
	mu    *sync.Mutex
	cache map[string]*jsonschema.Schema
}

// NewSchemaRule creates a SchemaRule with an empty cache.
func NewSchemaRule() SchemaRule {
	return SchemaRule{mu: &sync.Mutex{}, cache: make(map[string]*jsonschema.Schema)}
}

func (SchemaRule) RuleKey() string { return "output_schema" }

func (SchemaRule) Applies(opts Options) bool {
	trimmed := bytes.TrimSpace(opts.OutputSchema)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func (r SchemaRule) Check(data map[string]any, opts Options) []string {
	schema, err := r.compile(opts.OutputSchema)
	if err != nil {
		return []string{"Schema violation: invalid output schema: " + err.Error()}
	}

	// Round-trip so the validator only sees JSON-decoded types.
	raw, err := json.Marshal(data)
	if err != nil {
		return []string{"Schema violation: result is not JSON-encodable: " + err.Error()}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []string{"Schema violation: " + err.Error()}
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{"Schema violation: " + err.Error()}
	}
	return schemaMessages(verr)
}

func (r SchemaRule) compile(src json.RawMessage) (*jsonschema.Schema, error) {
	key := string(src)
	if r.mu != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if s, ok := r.cache[key]; ok {
			return s, nil
		}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("output_schema.json", bytes.NewReader(src)); err != nil {
		return nil, err
	}
	s, err := compiler.Compile("output_schema.json")
	if err != nil {
		return nil, err
	}
	if r.mu != nil {
		r.cache[key] = s
	}
	return s, nil
}

// CompileSchema reports whether src is a usable output schema. Empty and
// null schemas are accepted.
func CompileSchema(src json.RawMessage) error {
	if !(SchemaRule{}).Applies(Options{OutputSchema: src}) {
		return nil
	}
	_, err := SchemaRule{}.compile(src)
	return err
}

// schemaMessages flattens the validation error tree into its leaves.
func schemaMessages(verr *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("Schema violation: %s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.Strings(out)
	return out
}
