package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	formcompiler "github.com/goliatone/go-formcompiler"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

type formFlags struct {
	form   string
	stored string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.form, "form", "", "form metadata file (JSON or YAML)")
	cmd.Flags().StringVar(&f.stored, "stored", "", "id of a form in the configured store")
	cmd.MarkFlagsMutuallyExclusive("form", "stored")
	cmd.MarkFlagsOneRequired("form", "stored")
}

func (f *formFlags) label() string {
	if f.form != "" {
		return f.form
	}
	return "stored:" + f.stored
}

func (a *app) compileForm(cmd *cobra.Command, f formFlags) (formcompiler.CompileResult, error) {
	if f.stored != "" {
		return a.compiler.CompileStored(cmd.Context(), f.stored)
	}
	meta, err := metadata.LoadFile(f.form)
	if err != nil {
		return formcompiler.CompileResult{}, err
	}
	return a.compiler.Compile(meta), nil
}

func newValidateCommand(a *app) *cobra.Command {
	var (
		form formFlags
		data string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate submitted data against a form",
		Long: `Validate compiles the form and checks the data file against it. The result
is printed as JSON; the command exits non-zero when validation fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := readData(cmd, data)
			if err != nil {
				return err
			}

			var res formcompiler.ValidateResult
			if form.stored != "" {
				res, err = a.compiler.ValidateStored(cmd.Context(), form.stored, values)
				if err != nil {
					return err
				}
			} else {
				meta, err := metadata.LoadFile(form.form)
				if err != nil {
					return err
				}
				res = a.compiler.Validate(values, meta)
			}

			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				reportErrors(cmd.ErrOrStderr(), form.label(), res.Errors)
				return ErrFailed
			}
			return nil
		},
	}
	form.register(cmd)
	cmd.Flags().StringVar(&data, "data", "", `submitted values (JSON or YAML file, "-" for stdin)`)
	return cmd
}

func newVisibilityCommand(a *app) *cobra.Command {
	var (
		form formFlags
		data string
	)
	cmd := &cobra.Command{
		Use:   "visibility",
		Short: "Print which fields are visible for the given values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := readData(cmd, data)
			if err != nil {
				return err
			}
			compiled, err := a.compileForm(cmd, form)
			if err != nil {
				return err
			}
			if !compiled.Success {
				reportErrors(cmd.ErrOrStderr(), form.label(), compiled.Errors)
				return ErrFailed
			}
			return writeJSON(cmd.OutOrStdout(), compiled.Schema.Visibility(values, nil))
		},
	}
	form.register(cmd)
	cmd.Flags().StringVar(&data, "data", "", `current values (JSON or YAML file, "-" for stdin)`)
	return cmd
}

func newLintCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <files...>",
		Short: "Compile form metadata files and report problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			green := color.New(color.FgGreen)
			failed := false
			for _, path := range args {
				meta, err := metadata.LoadFile(path)
				if err != nil {
					color.New(color.FgRed).Fprintf(errOut, "%s: %v\n", path, err)
					failed = true
					continue
				}
				res := a.compiler.Compile(meta)
				if !res.Success {
					reportErrors(errOut, path, res.Errors)
					failed = true
					continue
				}
				green.Fprintf(out, "ok %s (%d fields)\n", path, len(meta.Fields))
			}
			if failed {
				return ErrFailed
			}
			return nil
		},
	}
}
