package fsops

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aide/internal/logging"
	"aide/internal/tools"
)

// ListFilesTool returns a tool for listing directory contents.
func ListFilesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "list_files",
		Description: "List files in a directory",
		Category:    tools.CategoryFilesystem,
		Execute:     executeListFiles,
		PathArgs:    []string{"path"},
		Schema: tools.Schema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The directory path to list",
				},
				"recursive": {
					Type:        "boolean",
					Description: "List recursively (default: false)",
					Default:     false,
				},
				"include_hidden": {
					Type:        "boolean",
					Description: "Include hidden files (default: false)",
					Default:     false,
				},
			},
		},
	}
}

func executeListFiles(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	recursive := false
	if r, ok := args["recursive"].(bool); ok {
		recursive = r
	}

	includeHidden := false
	if ih, ok := args["include_hidden"].(bool); ok {
		includeHidden = ih
	}

	logging.ToolsDebug("list_files: path=%s, recursive=%v", path, recursive)

	var files []string

	if recursive {
		err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip unreadable entries
			}

			name := info.Name()
			if !includeHidden && strings.HasPrefix(name, ".") {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			relPath, _ := filepath.Rel(path, p)
			if relPath == "." {
				return nil
			}

			if info.IsDir() {
				files = append(files, relPath+"/")
			} else {
				files = append(files, relPath)
			}

			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to walk directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", fmt.Errorf("failed to read directory: %w", err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if !includeHidden && strings.HasPrefix(name, ".") {
				continue
			}

			if entry.IsDir() {
				files = append(files, name+"/")
			} else {
				files = append(files, name)
			}
		}
	}

	logging.Tools("list_files completed: %s (%d entries)", path, len(files))
	if len(files) == 0 {
		return "(empty directory)", nil
	}
	return strings.Join(files, "\n"), nil
}

// FindByNameTool returns a tool for finding files by name pattern.
func FindByNameTool() *tools.Tool {
	return &tools.Tool{
		Name:        "find_by_name",
		Description: "Find files whose name matches a glob pattern, searching recursively",
		Category:    tools.CategoryFilesystem,
		Execute:     executeFindByName,
		PathArgs:    []string{"path"},
		Schema: tools.Schema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Glob pattern to match file names against (e.g. '*.go')",
				},
				"path": {
					Type:        "string",
					Description: "Base directory for the search (default: current directory)",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results (default: 100)",
					Default:     100,
				},
			},
		},
	}
}

func executeFindByName(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	if _, err := filepath.Match(pattern, "probe"); err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	base, _ := args["path"].(string)
	if base == "" {
		base = "."
	}

	maxResults := 100
	if mr, ok := intArg(args, "max_results"); ok && mr > 0 {
		maxResults = mr
	}

	logging.ToolsDebug("find_by_name: pattern=%s, base=%s", pattern, base)

	var matches []string
	err := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		name := info.Name()
		if info.IsDir() && strings.HasPrefix(name, ".") && p != base {
			return filepath.SkipDir
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			rel, _ := filepath.Rel(base, p)
			if rel != "." {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	sort.Strings(matches)
	logging.Tools("find_by_name completed: %s (%d matches)", pattern, len(matches))
	if len(matches) == 0 {
		return fmt.Sprintf("No files matching %q under %s", pattern, base), nil
	}
	return strings.Join(matches, "\n"), nil
}

// GrepSearchTool returns a tool for searching file contents.
func GrepSearchTool() *tools.Tool {
	return &tools.Tool{
		Name:        "grep_search",
		Description: "Search file contents for a text query, recursively",
		Category:    tools.CategoryFilesystem,
		Execute:     executeGrepSearch,
		PathArgs:    []string{"path"},
		Schema: tools.Schema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query": {
					Type:        "string",
					Description: "The text to search for",
				},
				"path": {
					Type:        "string",
					Description: "Base directory for the search (default: current directory)",
				},
				"case_sensitive": {
					Type:        "boolean",
					Description: "Match case exactly (default: false)",
					Default:     false,
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of matching lines (default: 50)",
					Default:     50,
				},
			},
		},
	}
}

func executeGrepSearch(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	base, _ := args["path"].(string)
	if base == "" {
		base = "."
	}

	caseSensitive := false
	if cs, ok := args["case_sensitive"].(bool); ok {
		caseSensitive = cs
	}

	maxResults := 50
	if mr, ok := intArg(args, "max_results"); ok && mr > 0 {
		maxResults = mr
	}

	needle := query
	if !caseSensitive {
		needle = strings.ToLower(query)
	}

	logging.ToolsDebug("grep_search: query=%q, base=%s", query, base)

	var hits []string
	err := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			if err == nil && info.IsDir() && strings.HasPrefix(info.Name(), ".") && p != base {
				return filepath.SkipDir
			}
			return nil
		}
		if len(hits) >= maxResults {
			return filepath.SkipAll
		}
		if info.Size() > 5*1024*1024 {
			return nil // skip huge files
		}
		grepFile(p, base, needle, caseSensitive, maxResults, &hits)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	logging.Tools("grep_search completed: %q (%d hits)", query, len(hits))
	if len(hits) == 0 {
		return fmt.Sprintf("No matches for %q under %s", query, base), nil
	}
	return strings.Join(hits, "\n"), nil
}

func grepFile(path, base, needle string, caseSensitive bool, maxResults int, hits *[]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	rel, _ := filepath.Rel(base, path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		haystack := line
		if !caseSensitive {
			haystack = strings.ToLower(line)
		}
		if strings.Contains(haystack, needle) {
			trimmed := strings.TrimSpace(line)
			if len(trimmed) > 200 {
				trimmed = trimmed[:200] + "..."
			}
			*hits = append(*hits, fmt.Sprintf("%s:%d: %s", rel, lineNo, trimmed))
			if len(*hits) >= maxResults {
				return
			}
		}
	}
}
