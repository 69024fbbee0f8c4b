package validator

// Registry maps rule keys to Rule implementations, preserving registration order.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// DefaultRegistry holds the built-in rules in the order their messages appear.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RequiredFieldsRule{})
	r.Register(NumericRule{})
	r.Register(NewSchemaRule())
	return r
}

// Register adds a rule to the registry, replacing any rule with the same key.
func (r *Registry) Register(rule Rule) {
	key := rule.RuleKey()
	if _, exists := r.rules[key]; !exists {
		r.order = append(r.order, key)
	}
	r.rules[key] = rule
}

// Get returns the rule for a given key, or nil if not found.
func (r *Registry) Get(key string) Rule {
	return r.rules[key]
}

// All returns all registered rules in registration order.
func (r *Registry) All() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.rules[k])
	}
	return out
}
