// Command tgdemo is a minimal smoke-test harness for the graph engine:
// it wires a sample graph definition to a sqlite backend and exercises
// schema lifecycle management and the write pipeline end to end, the
// way beads' cmd/bd exercises its storage and sync layers from a single
// cobra root command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/backend/sqlitebackend"
	"github.com/typegraph/tgcore/internal/config"
	"github.com/typegraph/tgcore/internal/hooks"
	"github.com/typegraph/tgcore/internal/ontology"
	"github.com/typegraph/tgcore/internal/pipeline"
	"github.com/typegraph/tgcore/internal/registry"
	"github.com/typegraph/tgcore/internal/schema"
)

var (
	dbPath     string
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "tgdemo",
		Short: "Smoke-test harness for the typegraph engine",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "tgdemo.db", "sqlite database path")
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml or toml)")

	root.AddCommand(initCmd(), createPersonCmd(), listPeopleCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Open the backend and ensure the demo graph's schema is current",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, closer, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()
			fmt.Println("schema ensured")
			return nil
		},
	}
}

func createPersonCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-person",
		Short: "Create a Person node",
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, _, closer, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()
			n, err := pl.CreateNode(cmd.Context(), pipeline.CreateNodeInput{
				Kind:  "Person",
				Props: map[string]any{"name": name, "email": email},
			})
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(n, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "person's name")
	cmd.Flags().StringVar(&email, "email", "", "person's email")
	return cmd
}

func listPeopleCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "list-people",
		Short: "List live Person nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, be, closer, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			filter := backend.NodeFilter{}
			if asOf != "" {
				t, err := pipeline.ParseTemporalArg(asOf, time.Now())
				if err != nil {
					return err
				}
				filter.AsOf = &t
			}

			rows, err := be.FindNodesByKind(cmd.Context(), demoGraphID, "Person", filter)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", `point in time to view as of, e.g. "yesterday" or "3 days ago"`)
	return cmd
}

const demoGraphID = "tgdemo"

func bootstrap(ctx context.Context) (*pipeline.Pipeline, *sqlitebackend.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	graph, err := demoGraph()
	if err != nil {
		return nil, nil, nil, err
	}
	closures := ontology.Build(graph.Ontology, graph.MetaEdges)
	reg := registry.New(graph, closures)

	store, err := sqlitebackend.Open(ctx, sqlitebackend.Config{Path: dbPath, BusyTimeoutMs: cfg.SQLiteBusyTimeout, MaxRetries: cfg.MaxRetries})
	if err != nil {
		return nil, nil, nil, err
	}

	result, err := schema.EnsureSchema(ctx, schema.NewBackendStore(store), graph, closures, schema.EnsureOptions{
		AutoMigrate: true, ThrowOnBreaking: cfg.ThrowOnBreaking, GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	slog.Info("schema ensured", "status", result.Status, "version", result.Version)

	h := hooks.Combine(hooks.NewOtelHooks())
	pl := pipeline.New(demoGraphID, graph, reg, store, h, nil, nil)
	return pl, store, func() { _ = store.Close() }, nil
}
