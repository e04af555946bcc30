package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"coursebook/internal/loader"
	"coursebook/internal/service"
)

func NewExport(opts *Options) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <options>",
		Short: "write every course as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return env.Service.Export(cmd.Context(), format, w)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	flags.StringVarP(&output, "output", "O", "", "output file (default stdout)")
	return cmd
}

func NewImport(opts *Options) *cobra.Command {
	var format, strategy string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "read courses from a JSON or YAML file",
		Long: `
Ids in the file are ignored; every course gets a new id. With
--strategy replace all existing courses are deleted first. "-" reads stdin.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			if format == "" {
				format = loader.FormatFromPath(args[0])
			}

			env, err := opts.Setup()
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.Service.Import(cmd.Context(), format, r, strategy)
			if err != nil {
				return fmt.Errorf("error with importing courses: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d courses (%s, %d deleted)\n",
				result.Created, result.Strategy, result.Deleted)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "", "input format: json or yaml (default from file extension)")
	flags.StringVarP(&strategy, "strategy", "s", service.StrategyMerge, "merge or replace")
	return cmd
}
