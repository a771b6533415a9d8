package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aide/internal/gateway"
)

// modelsCmd lists the models available on the backend.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client := gateway.NewClient(gateway.Config{
			Host:    cfg.Backend.Host,
			Model:   cfg.Backend.Model,
			Timeout: cfg.GetBackendTimeout(),
		})

		models, err := client.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("cannot list models on %s: %w", client.Host(), err)
		}
		if len(models) == 0 {
			fmt.Println("No models installed. Pull one with: ollama pull <model>")
			return nil
		}
		for _, m := range models {
			marker := "  "
			if m.Name == client.Model() {
				marker = "* "
			}
			fmt.Printf("%s%s (%.1f GB)\n", marker, m.Name, float64(m.Size)/1e9)
		}
		return nil
	},
}

// preflight verifies the backend is reachable and resolves which model to
// use. The health check and the model listing run concurrently. Returns the
// model name to chat with: the configured one if installed, otherwise the
// first installed model when none was configured.
func preflight(ctx context.Context, client *gateway.Client) (string, error) {
	var models []gateway.ModelInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.HealthCheck(gctx)
	})
	g.Go(func() error {
		var err error
		models, err = client.ListModels(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("backend not ready at %s: %w", client.Host(), err)
	}

	if len(models) == 0 {
		return "", fmt.Errorf("backend at %s has no models installed; pull one with: ollama pull <model>", client.Host())
	}

	if client.Model() == "" {
		logger.Info("no model configured, using first available", zap.String("model", models[0].Name))
		return models[0].Name, nil
	}

	for _, m := range models {
		if m.Name == client.Model() || modelBase(m.Name) == client.Model() {
			return client.Model(), nil
		}
	}
	return "", fmt.Errorf("model %q not found on backend; run 'aide models' to see what is installed", client.Model())
}

// modelBase strips the tag from a model name ("llama3:8b" -> "llama3").
func modelBase(name string) string {
	for i, r := range name {
		if r == ':' {
			return name[:i]
		}
	}
	return name
}
