package tools

import (
	"fmt"
	"sort"
	"strings"
)

const promptHeader = `You have access to the following tools. When you need to use a tool,
respond ONLY with a single JSON object with two keys: "tool_name" and "arguments".
The "arguments" key must contain an object with the required parameters.
Respond with plain text when no tool is needed.

Available Tools:`

// PromptBlock generates the tool advertisement appended to the system prompt.
// Returns an empty string when no tools are registered.
func (r *Registry) PromptBlock() string {
	all := r.All()
	if len(all) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n")
	for _, tool := range all {
		b.WriteString(tool.promptLine())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// promptLine renders one tool as "- name(arg: type, ...): description".
func (t *Tool) promptLine() string {
	params := make([]string, 0, len(t.Schema.Properties))
	names := make([]string, 0, len(t.Schema.Properties))
	for name := range t.Schema.Properties {
		names = append(names, name)
	}
	// Required arguments first, then the rest alphabetically.
	sort.Slice(names, func(i, j int) bool {
		ri, rj := t.isRequired(names[i]), t.isRequired(names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		prop := t.Schema.Properties[name]
		param := fmt.Sprintf("%s: %s", name, prop.Type)
		if !t.isRequired(name) {
			param += "?"
		}
		params = append(params, param)
	}
	return fmt.Sprintf("- %s(%s): %s", t.Name, strings.Join(params, ", "), t.Description)
}

func (t *Tool) isRequired(arg string) bool {
	for _, r := range t.Schema.Required {
		if r == arg {
			return true
		}
	}
	return false
}
