package parser

// nodePolicies lists, per language, the grammar node types that are embedded
// on their own. Languages registered without an entry only yield the
// whole-program unit.
var nodePolicies = map[string][]string{
	"python": {
		"function_definition",
		"class_definition",
		"decorated_definition",
	},
	"javascript": jsFamilyNodes,
	"typescript": tsFamilyNodes,
	"tsx":        tsFamilyNodes,
	"java": {
		"class_declaration",
		"interface_declaration",
		"enum_declaration",
		"record_declaration",
		"annotation_type_declaration",
		"method_declaration",
	},
	"c": {
		"function_definition",
		"struct_specifier",
		"enum_specifier",
		"union_specifier",
		"type_definition",
		"declaration",
		"preproc_function_def",
	},
	"cpp": {
		"function_definition",
		"class_specifier",
		"struct_specifier",
		"enum_specifier",
		"template_declaration",
		"type_definition",
		"alias_declaration",
		"declaration",
	},
	"csharp": {
		"class_declaration",
		"interface_declaration",
		"struct_declaration",
		"record_declaration",
		"enum_declaration",
		"method_declaration",
		"delegate_declaration",
	},
	"rust": {
		"function_item",
		"impl_item",
		"struct_item",
		"enum_item",
		"trait_item",
		"mod_item",
		"macro_definition",
		"const_item",
		"static_item",
		"type_item",
	},
	"ruby": {
		"method",
		"singleton_method",
		"class",
		"module",
	},
	"php": {
		"function_definition",
		"class_declaration",
		"interface_declaration",
		"trait_declaration",
		"enum_declaration",
	},
	"kotlin": {
		"function_declaration",
		"class_declaration",
		"object_declaration",
	},
	"swift": {
		"function_declaration",
		"class_declaration",
		"protocol_declaration",
	},
	"scala": {
		"function_definition",
		"class_definition",
		"object_definition",
		"trait_definition",
	},
	"bash": {
		"function_definition",
	},
	"lua": {
		"function_declaration",
		"local_function",
	},
}

var jsFamilyNodes = []string{
	"function_declaration",
	"generator_function_declaration",
	"class_declaration",
	"method_definition",
	"lexical_declaration",
	"variable_declaration",
	"export_statement",
}

var tsFamilyNodes = append(append([]string{}, jsFamilyNodes...),
	"abstract_class_declaration",
	"interface_declaration",
	"type_alias_declaration",
	"enum_declaration",
	"module",
)

// moduleScopeNodes are only chunk-worthy at module scope; inside a function
// body or callback they belong to the enclosing code
var moduleScopeNodes = map[string]bool{
	"lexical_declaration":  true,
	"variable_declaration": true,
	"declaration":          true,
}

// moduleScopeParents are containers whose children stay at module scope
var moduleScopeParents = map[string]bool{
	"export_statement":      true,
	"declaration_list":      true,
	"linkage_specification": true,
	"preproc_if":            true,
	"preproc_ifdef":         true,
	"preproc_elif":          true,
	"preproc_else":          true,
}

// Policy is the set of node types treated as independently embeddable
type Policy map[string]struct{}

// PolicyFor returns the node policy for a language. The policy is empty for
// languages that only chunk at whole-program granularity.
func PolicyFor(lang string) Policy {
	kinds := nodePolicies[lang]
	p := make(Policy, len(kinds))
	for _, k := range kinds {
		p[k] = struct{}{}
	}
	return p
}

// Matches reports whether a node type is chunk-worthy
func (p Policy) Matches(nodeType string) bool {
	_, ok := p[nodeType]
	return ok
}

// Selects reports whether a node is chunk-worthy given whether it sits at
// module scope. Declarations restricted to module scope never match below it.
func (p Policy) Selects(nodeType string, moduleScope bool) bool {
	if !p.Matches(nodeType) {
		return false
	}
	return moduleScope || !moduleScopeNodes[nodeType]
}

// keepsModuleScope reports whether children of nodeType are still at module scope
func keepsModuleScope(nodeType string) bool {
	return moduleScopeParents[nodeType]
}
