// Package fsops provides the filesystem tool suite: reading, writing,
// editing, searching, and directory navigation.
package fsops

import (
	"aide/internal/tools"
)

// RegisterAll registers all filesystem tools with the given registry.
func RegisterAll(registry *tools.Registry) error {
	allTools := []*tools.Tool{
		// File operations
		ReadFileTool(),
		WriteFileTool(),
		CreateFileTool(),
		EditFileTool(),

		// Search operations
		ListFilesTool(),
		FindByNameTool(),
		GrepSearchTool(),

		// Navigation
		ChangeDirectoryTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
