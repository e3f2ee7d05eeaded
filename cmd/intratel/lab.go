package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"intratel/internal/codec"
	"intratel/internal/domain"

	"github.com/spf13/cobra"
)

func newLabCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Manage saved labs",
	}
	cmd.AddCommand(
		newLabListCmd(opts),
		newLabExportCmd(opts),
		newLabImportCmd(opts),
		newLabDeleteCmd(opts),
	)
	return cmd
}

func newLabListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved labs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			labs, err := repo.ListLabs(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLINKS\tUPDATED\tDESCRIPTION")
			for _, lab := range labs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", lab.Name, lab.LinkCount(), lab.UpdatedAt.Format("2006-01-02 15:04"), lab.Description)
			}
			return tw.Flush()
		},
	}
}

func newLabExportCmd(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a saved lab as yaml, json or an Ansible inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := codec.ExporterFor(format)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			lab, err := repo.GetLab(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return exporter.Export(lab.Snapshot, w)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json or ansible-inventory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newLabImportCmd(opts *rootOptions) *cobra.Command {
	var format, description string

	cmd := &cobra.Command{
		Use:   "import NAME FILE",
		Short: "Save a yaml or json topology file as a lab",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer, err := codec.ImporterFor(format)
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[1], err)
			}
			defer f.Close()

			snap, err := importer.Parse(f)
			if err != nil {
				return err
			}
			// Validate against a scratch topology before saving
			if err := domain.NewSeedTopology().Restore(snap); err != nil {
				return fmt.Errorf("invalid lab %s: %w", args[1], err)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			lab := &domain.Lab{Name: args[0], Description: description, Snapshot: snap}
			if err := repo.SaveLab(cmd.Context(), lab); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved lab %s (%d links)\n", lab.Name, lab.LinkCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "input format: yaml or json")
	cmd.Flags().StringVarP(&description, "description", "d", "", "lab description")
	return cmd
}

func newLabDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved lab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			return repo.DeleteLab(cmd.Context(), args[0])
		},
	}
}
