package proc

import (
	"time"

	"aide/internal/tools"
)

// RegisterAll registers all process tools with the given registry, bound to
// the given manager.
func RegisterAll(registry *tools.Registry, manager *Manager, commandTimeout time.Duration, maxOutput int) error {
	allTools := []*tools.Tool{
		RunCommandTool(commandTimeout, maxOutput),
		StartProcessTool(manager),
		StopProcessTool(manager),
		ListProcessesTool(manager),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
