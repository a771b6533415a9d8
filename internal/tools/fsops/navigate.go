package fsops

import (
	"context"
	"fmt"
	"os"

	"aide/internal/logging"
	"aide/internal/tools"
)

// ChangeDirectoryTool returns the navigation tool. Its path argument is
// resolved from natural language before the action is proposed, so by the
// time Execute runs the target is an absolute path. The execution engine
// moves the session's working directory when this tool succeeds.
func ChangeDirectoryTool() *tools.Tool {
	return &tools.Tool{
		Name:                 "change_directory",
		Description:          "Change the current working directory; the target may be described in natural language (e.g. 'my documents folder', 'up two levels')",
		Category:             tools.CategoryFilesystem,
		Execute:              executeChangeDirectory,
		PathArgs:             []string{"path"},
		Navigation:           true,
		RequiresConfirmation: true,
		Schema: tools.Schema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The target directory",
				},
			},
		},
	}
}

func executeChangeDirectory(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no such directory: %s", path)
		}
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", path)
	}

	logging.Tools("change_directory: %s", path)
	return fmt.Sprintf("Changed directory to %s", path), nil
}
