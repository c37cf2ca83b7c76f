package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formcompiler/internal/prompt"
)

func (a *app) filler(cmd *cobra.Command) *prompt.Filler {
	driver := a.driver
	if driver == nil {
		driver = prompt.NewSurveyDriver(cmd.ErrOrStderr())
	}
	return prompt.NewFiller(driver, a.compiler.Runner(), prompt.WithLocale(a.compiler.ErrorLocale()))
}

func newFillCommand(a *app) *cobra.Command {
	var form formFlags
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill a form interactively and print the validated data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			compiled, err := a.compileForm(cmd, form)
			if err != nil {
				return err
			}
			if !compiled.Success {
				reportErrors(cmd.ErrOrStderr(), form.label(), compiled.Errors)
				return ErrFailed
			}

			res, err := a.filler(cmd).Fill(cmd.Context(), compiled.Schema)
			if err != nil {
				return fmt.Errorf("fill %s: %w", form.label(), err)
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
	return cmd
}
