package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/store"
)

func (a *app) compilerStore() store.Store { return lazyStore{a} }

func zapForm(id string) zap.Field { return zap.String("form", id) }

func newStoreCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage form metadata in the configured store",
	}
	cmd.AddCommand(
		newStorePutCommand(a),
		newStoreGetCommand(a),
		newStoreListCommand(a),
		newStoreDeleteCommand(a),
	)
	return cmd
}

func newStorePutCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "put <files...>",
		Short: "Compile and store form metadata files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.compilerStore()
			green := color.New(color.FgGreen)
			for _, path := range args {
				meta, err := metadata.LoadFile(path)
				if err != nil {
					return err
				}
				if res := a.compiler.Compile(meta); !res.Success && !force {
					reportErrors(cmd.ErrOrStderr(), path, res.Errors)
					return ErrFailed
				}
				if err := s.Put(cmd.Context(), meta); err != nil {
					return fmt.Errorf("store %s: %w", path, err)
				}
				a.logger.Debug("form stored", zapForm(meta.ID))
				green.Fprintf(cmd.OutOrStdout(), "stored %s\n", meta.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "store forms even when they do not compile")
	return cmd
}

func newStoreGetCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := a.compilerStore().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), format, meta)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml or json)")
	return cmd
}

func newStoreListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored form ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := a.compilerStore().List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newStoreDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a stored form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.compilerStore().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
