package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bigrogerio/daedalus/internal/core/app"
	"github.com/bigrogerio/daedalus/internal/core/ports"
	"github.com/bigrogerio/daedalus/internal/engine/imports"
	"github.com/bigrogerio/daedalus/internal/engine/modmap"
	"github.com/bigrogerio/daedalus/internal/engine/syntax"
	"github.com/bigrogerio/daedalus/internal/engine/varstore"
	"github.com/bigrogerio/daedalus/internal/shared/observability"

	"github.com/spf13/cobra"
)

func (c *cli) analyzer(store ports.VariableStore) *app.Analyzer {
	if store == nil {
		store = varstore.Empty()
	}
	return app.NewAnalyzer(syntax.NewLoader(), store, c.cfg.Resolver)
}

func (c *cli) importsCmd() *cobra.Command {
	var (
		analyze    bool
		mapImports bool
		searchRoot string
	)
	cmd := &cobra.Command{
		Use:   "imports FILE",
		Short: "List the imports of a Python file",
		Long: "List the imports of a Python file. --analyze-imports prints the qualified\n" +
			"import names, --map-imports maps each one to a file under the search root.\n" +
			"Without either flag the names are printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			fa, err := c.analyzer(nil).AnalyzeFile(cmd.Context(), path)
			if err != nil {
				return err
			}

			if !analyze && !mapImports {
				analyze = true
			}
			if analyze {
				fmt.Fprintln(c.stdout, "Extracted Import Trees:")
				for _, name := range fa.ImportNames() {
					fmt.Fprintln(c.stdout, name)
				}
			}
			if !mapImports {
				return nil
			}

			if analyze {
				fmt.Fprintln(c.stdout)
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			root := searchRoot
			if root == "" {
				root = filepath.Dir(absPath)
			}
			if root, err = filepath.Abs(root); err != nil {
				return err
			}

			mappings := modmap.New(root).Map(absPath, fa.Imports)
			sort.SliceStable(mappings, func(i, j int) bool { return mappings[i].Import < mappings[j].Import })
			seen := make(imports.Set, len(mappings))
			for _, m := range mappings {
				if seen.Has(m.Import) {
					continue
				}
				seen.Add(m.Import)
				fmt.Fprintln(c.stdout, m.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&analyze, "analyze-imports", false, "Print the extracted import names")
	cmd.Flags().BoolVar(&mapImports, "map-imports", false, "Map imports to local files")
	cmd.Flags().StringVar(&searchRoot, "root", "", "Search root for --map-imports (default: the file's directory)")
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	var (
		variablesPath string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Resolve the top-level variables of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := c.cfg.Variables
			if variablesPath != "" {
				vars.File = variablesPath
			}
			store, err := app.LoadVariables(vars)
			if err != nil {
				return err
			}

			fa, err := c.analyzer(store).AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(fa.State.Map())
			}
			for _, name := range fa.State.Names() {
				v, _ := fa.State.Get(name)
				fmt.Fprintf(c.stdout, "%s = %s\n", name, v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&variablesPath, "variables", "", "Variable export file (JSON, YAML or TOML)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resolved values as JSON")
	return cmd
}

func (c *cli) refsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refs FILE",
		Short: "List the files a Python file opens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fa, err := c.analyzer(nil).AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, ref := range fa.References {
				fmt.Fprintln(c.stdout, ref.String())
			}
			return nil
		},
	}
}

func (c *cli) scanCmd() *cobra.Command {
	var (
		watch    bool
		workers  int
		jsonPath string
		dotPath  string
	)
	cmd := &cobra.Command{
		Use:   "scan [DIR...]",
		Short: "Analyze every DAG file under the given directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("workers") {
				c.cfg.Scan.Workers = workers
			}
			if jsonPath != "" {
				c.cfg.Output.JSON = jsonPath
			}
			if dotPath != "" {
				c.cfg.Output.DOT = dotPath
			}

			if obs := c.cfg.Observability; obs.EnableTracing {
				shutdown, err := observability.InitTracing(ctx, obs.OTLPEndpoint, obs.OTLPInsecure)
				if err != nil {
					return err
				}
				defer func() { _ = shutdown(ctx) }()
			}

			a, err := app.New(c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Scan(ctx, ports.ScanRequest{Roots: args})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, renderSummary(res))

			if !watch {
				return nil
			}
			a.SetUpdateHandler(func(update ports.ScanResult) {
				fmt.Fprintln(c.stdout, renderSummary(update))
			})
			if err := a.Watch(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and re-analyze changed files")
	cmd.Flags().IntVar(&workers, "workers", 1, "Number of files analyzed concurrently")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Write the adjacency map as JSON to this path")
	cmd.Flags().StringVar(&dotPath, "dot", "", "Write the adjacency map as Graphviz DOT to this path")
	return cmd
}
