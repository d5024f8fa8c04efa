// Package main provides the Yggdrasil CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/orneryd/yggdrasil/pkg/config"
	"github.com/orneryd/yggdrasil/pkg/graph"
	"github.com/orneryd/yggdrasil/pkg/kv"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var (
	flagConfig   string
	flagDataDir  string
	flagGraph    string
	flagInMemory bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "yggdrasil",
		Short: "Yggdrasil - a graph data model on a key-value store",
		Long: `Yggdrasil stores vertices and directed, labeled, weighted edges
on a transactional key-value store with index-free adjacency:
every vertex carries its own incident-edge indexes, so traversal
cost follows local degree, not graph size.`,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagGraph, "graph", "", "Graph namespace (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagInMemory, "in-memory", false, "Run on an in-memory store")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Yggdrasil v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(vertexCmd())
	rootCmd.AddCommand(edgeCmd())
	rootCmd.AddCommand(traverseCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from env, file, and flags.
func loadConfig() (*config.Config, error) {
	cfg := config.LoadFromEnv()
	if flagConfig != "" {
		var err error
		cfg, err = config.LoadFile(cfg, flagConfig)
		if err != nil {
			return nil, err
		}
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagGraph != "" {
		cfg.DefaultGraph = flagGraph
	}
	if flagInMemory {
		cfg.InMemory = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openGraph opens the configured store and binds the configured graph.
// The returned closer must be called before exit.
func openGraph() (*graph.Graph, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := kv.NewBadgerStoreWithOptions(kv.BadgerOptions{
		DataDir:    cfg.DataDir,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	g, err := graph.New(store, cfg.DefaultGraph)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return g, func() { store.Close() }, nil
}

// parseValue infers the scalar kind of a CLI-supplied property value:
// integer, then float, then boolean, falling back to string.
func parseValue(raw string) graph.Value {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return graph.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return graph.Float(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return graph.Bool(b)
	}
	return graph.String(raw)
}

func vertexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vertex",
		Short: "Vertex operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [id]",
		Short: "Add a vertex (id allocated when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			v, err := g.AddVertex(id)
			if err != nil {
				return err
			}
			fmt.Println(v.ID())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a vertex and its properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			v, err := g.GetVertex(args[0])
			if err != nil {
				return err
			}
			props, err := v.Properties()
			if err != nil {
				return err
			}
			fmt.Println(v.ID())
			for name, val := range props {
				fmt.Printf("  %s = %v\n", name, val.Any())
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <name> <value>",
		Short: "Set a vertex property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			v, err := g.GetVertex(args[0])
			if err != nil {
				return err
			}
			return v.SetProperty(args[1], parseValue(args[2]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a vertex and its incident edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()
			return g.RemoveVertex(args[0])
		},
	})

	return cmd
}

func edgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Edge operations",
	}

	var label string
	var weight float64

	addCmd := &cobra.Command{
		Use:   "add <src> <dst>",
		Short: "Add or replace an edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			e, err := g.AddEdge(args[0], args[1],
				graph.WithLabel(label), graph.WithWeight(weight))
			if err != nil {
				return err
			}
			fmt.Println(e)
			return nil
		},
	}
	addCmd.Flags().StringVar(&label, "label", "", "Edge label")
	addCmd.Flags().Float64Var(&weight, "weight", 1.0, "Edge weight")
	cmd.AddCommand(addCmd)

	var getLabel string
	getCmd := &cobra.Command{
		Use:   "get <src> <dst>",
		Short: "Show an edge, its weight, and its properties",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			e, err := g.GetEdge(args[0], args[1], getLabel)
			if err != nil {
				return err
			}
			w, err := e.Weight()
			if err != nil {
				return err
			}
			props, err := e.Properties()
			if err != nil {
				return err
			}
			fmt.Printf("%s weight=%g\n", e, w)
			for name, val := range props {
				fmt.Printf("  %s = %v\n", name, val.Any())
			}
			return nil
		},
	}
	getCmd.Flags().StringVar(&getLabel, "label", "", "Edge label")
	cmd.AddCommand(getCmd)

	var removeLabel string
	removeCmd := &cobra.Command{
		Use:   "remove <src> <dst>",
		Short: "Remove an edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()
			return g.RemoveEdge(args[0], args[1], removeLabel)
		},
	}
	removeCmd.Flags().StringVar(&removeLabel, "label", "", "Edge label")
	cmd.AddCommand(removeCmd)

	return cmd
}

func traverseCmd() *cobra.Command {
	var dir string
	var label string
	var showEdges bool

	cmd := &cobra.Command{
		Use:   "traverse <id>",
		Short: "List the neighborhood of a vertex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			v, err := g.GetVertex(args[0])
			if err != nil {
				return err
			}

			var labels []string
			if cmd.Flags().Changed("label") {
				labels = []string{label}
			}

			var edges *graph.EdgeSet
			switch dir {
			case "out":
				edges = v.OutE(labels...)
			case "in":
				edges = v.InE(labels...)
			default:
				return fmt.Errorf("unknown direction %q (want out or in)", dir)
			}

			if showEdges {
				it := edges.Iterate()
				defer it.Close()
				for it.Next() {
					fmt.Println(it.Edge())
				}
				return it.Err()
			}

			var vertices *graph.VertexSet
			if dir == "out" {
				vertices = edges.InV()
			} else {
				vertices = edges.OutV()
			}
			members, err := vertices.Members()
			if err != nil {
				return err
			}
			for _, id := range members {
				fmt.Println(id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "out", "Traversal direction: out or in")
	cmd.Flags().StringVar(&label, "label", "", "Restrict to one edge label")
	cmd.Flags().BoolVar(&showEdges, "edges", false, "Print edges instead of vertices")
	return cmd
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.tsv>",
		Short: "Bulk-load a tab-separated edge list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			stats, err := g.LoadTSV(context.Background(), f)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d edges (%d lines skipped)\n", stats.Edges, stats.Skipped)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print graph order and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closer, err := openGraph()
			if err != nil {
				return err
			}
			defer closer()

			order, err := g.Order()
			if err != nil {
				return err
			}
			size, err := g.Size()
			if err != nil {
				return err
			}
			fmt.Printf("graph:    %s\n", g.Name())
			fmt.Printf("vertices: %d\n", order)
			fmt.Printf("edges:    %d\n", size)
			return nil
		},
	}
}
