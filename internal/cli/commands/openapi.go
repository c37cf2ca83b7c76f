package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formcompiler/pkg/openapi"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		spec      string
		operation string
		format    string
		output    string
		save      bool
		threshold int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert an OpenAPI request body into form metadata",
		Long: `Import reads an OpenAPI 3 document and converts the request body of one
operation into form metadata. Without --operation the importable operation ids
are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(spec)
			if err != nil {
				return fmt.Errorf("read spec %s: %w", spec, err)
			}
			importer := openapi.NewImporter(openapi.WithTextAreaThreshold(threshold))
			ctx := cmd.Context()

			if operation == "" {
				ids, err := importer.Operations(ctx, raw)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			meta, err := importer.Import(ctx, raw, operation)
			if err != nil {
				return err
			}
			if res := a.compiler.Compile(meta); !res.Success {
				reportErrors(cmd.ErrOrStderr(), operation, res.Errors)
				return ErrFailed
			}

			if save {
				if err := a.compilerStore().Put(ctx, meta); err != nil {
					return err
				}
				a.logger.Info("form stored", zapForm(meta.ID))
			}

			if output == "" {
				return writeFormatted(cmd.OutOrStdout(), format, meta)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeFormatted(f, format, meta); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "OpenAPI document (JSON or YAML)")
	cmd.Flags().StringVar(&operation, "operation", "", "operation id to import")
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml or json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&save, "save", false, "also put the form into the configured store")
	cmd.Flags().IntVar(&threshold, "textarea-threshold", openapi.DefaultTextAreaThreshold, "maxLength above which strings become textareas")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func newLintExtensionsCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint-extensions <specs...>",
		Short: "Lint OpenAPI documents for unsupported x-formgen extensions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer := openapi.NewImporter()
			red := color.New(color.FgRed)
			failed := false
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				violations, err := importer.Lint(cmd.Context(), raw)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				for _, v := range violations {
					red.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, v)
					failed = true
				}
			}
			if failed {
				return ErrFailed
			}
			return nil
		},
	}
}
