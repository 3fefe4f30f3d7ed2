package engine

import (
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`^\{\{(.+)\}\}$`)

// Resolver rewrites a step's arguments before invocation: full-value
// {{name}} placeholders are substituted with prior tool outputs, and the
// analysis/email tools receive the session's report file defaults when the
// plan omitted them.
type Resolver struct {
	analysisTool string
	emailTool    string
}

// NewResolver creates a resolver with the designated analysis and email
// tool names (both may be empty to disable the injections).
func NewResolver(analysisTool, emailTool string) *Resolver {
	return &Resolver{
		analysisTool: analysisTool,
		emailTool:    emailTool,
	}
}

// Resolve returns a new argument mapping with placeholders substituted
// against outputs. A placeholder naming a tool with no stored output is left
// unchanged rather than failing the chain. Non-string and non-placeholder
// values pass through untouched.
func (r *Resolver) Resolve(tool string, args map[string]any, outputs ToolOutputs, files SessionFiles) map[string]any {
	resolved := make(map[string]any, len(args)+1)
	for key, val := range args {
		s, ok := val.(string)
		if !ok {
			resolved[key] = val
			continue
		}
		m := placeholderRE.FindStringSubmatch(s)
		if m == nil {
			resolved[key] = val
			continue
		}
		token := strings.TrimSpace(m[1])
		if out, found := outputs[token]; found {
			resolved[key] = out
		} else {
			resolved[key] = val
		}
	}

	// Session defaults, only when the key is absent
	if tool == r.analysisTool && files.ReportName != "" {
		if _, set := resolved["filename"]; !set {
			resolved["filename"] = files.ReportName
		}
	}
	if tool == r.emailTool && files.ReportPath != "" {
		if _, set := resolved["attachment_path"]; !set {
			resolved["attachment_path"] = files.ReportPath
		}
	}

	return resolved
}
