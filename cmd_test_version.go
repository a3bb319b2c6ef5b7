package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calvertools/bumpver/pkg/cliutil"
	"github.com/calvertools/bumpver/pkg/pep440"
	"github.com/calvertools/bumpver/pkg/version"
)

func init() {
	var flags versionFlags
	cmd := &cobra.Command{
		Use:   "test [flags] OLD_VERSION PATTERN",
		Short: "Increment a version number for demo purposes",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			oldVersion, rawPattern := args[0], args[1]

			if err := validateComponentFlags(&flags, rawPattern); err != nil {
				return err
			}

			newVersion := flags.SetVersion
			if newVersion == "" {
				var err error
				newVersion, err = incrDispatch(ctx, oldVersion, rawPattern, &flags)
				if errors.Is(err, version.ErrNoChange) {
					logNoChange(ctx, "test", rawPattern)
					return err
				}
				if err != nil {
					return err
				}
			}

			if err := checkNewVersion(rawPattern, oldVersion, newVersion); err != nil {
				if flags.SetVersion != "" {
					return fmt.Errorf("invalid argument --set-version=%q: %w",
						flags.SetVersion, err)
				}
				return err
			}

			pep440Version := pep440.Normalize(newVersion)
			fmt.Printf("New Version: %s\n", newVersion)
			if newVersion != pep440Version {
				fmt.Printf("PEP440     : %s\n", pep440Version)
			}
			return nil
		},
	}
	addVersionFlags(cmd.Flags(), &flags)
	argparser.AddCommand(cmd)
}
