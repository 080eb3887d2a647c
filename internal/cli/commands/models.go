package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/halstore/internal/cli/ui"
	"github.com/conduit-lang/halstore/pkg/schema"
)

// NewModelsCommand creates the models command
func NewModelsCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model types declared in the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			registry, err := cfg.Registry()
			if err != nil {
				return &configError{err: err}
			}

			table := ui.NewTable(cmd.OutOrStdout(), global.noColor, "TYPE", "ENDPOINT", "EXTENDS", "RELATIONSHIPS")
			for _, typ := range registry.Types() {
				s := registry.MustGet(typ)
				table.AddRow(typ, s.Endpoint(), s.Parent(), describeRelationships(s))
			}
			table.Render()
			return nil
		},
	}
}

func describeRelationships(s *schema.ModelSchema) string {
	var parts []string
	for _, p := range s.Relationships() {
		target := p.ModelType
		if p.Kind == schema.KindHasMany {
			target = "[]" + target
		}
		parts = append(parts, p.Name+":"+target)
	}
	return strings.Join(parts, ", ")
}

// NewCacheCommand creates the cache command group
func NewCacheCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage persistent snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every snapshot under the configured prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear %s backend: %w", cfg.Backend.Kind, err)
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("cleared %s snapshots with prefix %q", cfg.Backend.Kind, cfg.Backend.Prefix), global.noColor)
			return nil
		},
	})

	return cmd
}
