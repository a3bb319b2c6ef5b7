package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calvertools/bumpver/pkg/cliutil"
	"github.com/calvertools/bumpver/pkg/config"
)

func init() {
	var flags struct {
		Dry bool
	}
	cmd := &cobra.Command{
		Use:   "init [flags]",
		Short: "Initialize [bumpver] configuration",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pctx, cfg, err := config.Init(ctx, ".", true)
			if err != nil {
				return err
			}
			if cfg != nil {
				return fmt.Errorf("configuration already initialized in %s", pctx.ConfigRelPath)
			}

			if flags.Dry {
				content, err := config.DefaultConfig(pctx)
				if err != nil {
					return err
				}
				fmt.Printf("Exiting because of '-d/--dry'. Would have written to %s:\n",
					pctx.ConfigRelPath)
				fmt.Println("    " + strings.ReplaceAll(strings.TrimRight(content, "\n"), "\n", "\n    "))
				return nil
			}

			if err := config.WriteContent(pctx); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", pctx.ConfigRelPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.Dry, "dry", "d", false,
		"Display the config that would be written, don't change anything.")
	argparser.AddCommand(cmd)
}
