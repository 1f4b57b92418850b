package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/terra-clan/carprice-engine/internal/artifacts"
	"github.com/terra-clan/carprice-engine/internal/config"
	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/sources"
)

var publishFlags struct {
	to string
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Copy the artifact files into Postgres or Redis",
	Long:  "Read the four artifacts from the configured files, check that they load together,\nand store them with a sha256 checksum in the chosen backend.",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&publishFlags.to, "to", "", "Target store: postgres or redis (required)")

	_ = publishCmd.MarkFlagRequired("to")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(os.Stderr)
	if err != nil {
		return err
	}

	if publishFlags.to == config.SourceDir {
		return fmt.Errorf("--to must name a store, not %q", config.SourceDir)
	}
	target := *cfg
	target.Artifacts.Source = publishFlags.to
	if err := target.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Artifacts.LoadTimeout)
	defer cancel()

	set, err := openProviders(ctx, cfg, publishFlags.to)
	if err != nil {
		return err
	}
	defer set.Close()

	src, err := set.registry.Resolve(config.SourceDir)
	if err != nil {
		return err
	}
	dst, err := set.registry.Resolve(publishFlags.to)
	if err != nil {
		return err
	}
	pub, ok := dst.(sources.Publisher)
	if !ok {
		return fmt.Errorf("artifact source %q does not accept publishes", publishFlags.to)
	}

	if err := checkHealth(ctx, set.registry); err != nil {
		return err
	}

	bundle, err := artifacts.Bundle(ctx, src)
	if err != nil {
		return err
	}
	if err := artifacts.Publish(ctx, pub, bundle); err != nil {
		return err
	}

	stored := bundle
	if lister, ok := pub.(sources.Lister); ok {
		if stored, err = lister.List(ctx); err != nil {
			return fmt.Errorf("failed to list published artifacts: %w", err)
		}
	}

	printArtifacts(cmd.OutOrStdout(), stored)
	slog.Info("artifacts published", "to", pub.Type(), "count", len(bundle))
	return nil
}

// checkHealth fails on the first unreachable provider, in name order
func checkHealth(ctx context.Context, registry *sources.Registry) error {
	results := registry.HealthCheckAll(ctx)
	for _, name := range registry.List() {
		if err := results[name]; err != nil {
			return fmt.Errorf("artifact source %s is unhealthy: %w", name, err)
		}
	}
	return nil
}

func printArtifacts(out io.Writer, list []*models.Artifact) {
	for _, a := range list {
		fmt.Fprintf(out, "%-18s %8d bytes  sha256:%s\n", a.Name, a.Size, a.Checksum)
	}
}
