package main

import (
	"fmt"

	"github.com/spf13/cobra"

	optimade "github.com/hugr-lab/optimade-go"
	"github.com/hugr-lab/optimade-go/filter"
	"github.com/hugr-lab/optimade-go/predicate"
)

func newValidateFilterCmd() *cobra.Command {
	var (
		configPath string
		grammar    string
		endpoint   string
		showSQL    bool
	)

	cmd := &cobra.Command{
		Use:   "validate-filter <filter>",
		Short: "Parse a filter and print its syntax tree and predicate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := optimade.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if grammar == "" {
				grammar = cfg.GrammarVersion
			}

			parser, err := filter.NewParser(grammar, filter.DefaultVariant)
			if err != nil {
				return err
			}
			root, err := parser.Parse(args[0])
			if err != nil {
				return err
			}

			cat, err := cfg.Catalogue()
			if err != nil {
				return err
			}
			e, ok := cat.EntryType(endpoint)
			if !ok {
				return fmt.Errorf("unknown entry type %s", endpoint)
			}

			pred, err := predicate.NewTransformer(e).Transform(root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "grammar:   %s\n", parser.Grammar().Key())
			fmt.Fprintf(out, "ast:       %s\n", filter.Format(root))
			fmt.Fprintf(out, "predicate: %s\n", predicate.Format(pred))
			if showSQL {
				where, err := predicate.NewDuckDBEncoder(&predicate.EncoderOptions{Schema: e.StorageSchema()}).Encode(pred)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "sql:       %s\n", where)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file declaring provider fields")
	cmd.Flags().StringVar(&grammar, "grammar", "", "filter grammar version (default from configuration)")
	cmd.Flags().StringVar(&endpoint, "endpoint", optimade.Structures, "entry type resolving the properties")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "also print the DuckDB WHERE clause")
	return cmd
}
