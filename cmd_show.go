package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/calvertools/bumpver/pkg/cliutil"
	"github.com/calvertools/bumpver/pkg/config"
	"github.com/calvertools/bumpver/pkg/version"
)

func init() {
	var flags struct {
		Fetch bool
		Env   bool
	}
	cmd := &cobra.Command{
		Use:   "show [flags]",
		Short: "Show the current version of your project",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if noFetch, _ := cmd.Flags().GetBool("no-fetch"); noFetch {
				flags.Fetch = false
			}

			_, cfg, err := config.Init(ctx, ".", false)
			if err != nil {
				return fmt.Errorf("could not parse configuration, perhaps try 'bumpver init': %w", err)
			}

			updateCfgFromVCS(ctx, cfg, flags.Fetch)

			if flags.Env {
				vinfo, err := version.Parse(cfg.CurrentVersion, cfg.VersionPattern)
				if err != nil {
					return err
				}
				printEnv(vinfo, cfg)
				return nil
			}

			fmt.Printf("Current Version: %s\n", cfg.CurrentVersion)
			fmt.Printf("PEP440         : %s\n", cfg.PEP440Version)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.Fetch, "fetch", "f", true,
		"Sync tags from remote origin. Disable with --fetch=false (or -n).")
	cmd.Flags().BoolVarP(&flags.Env, "env", "e", false,
		"Print version state for use with shell scripts: eval $(bumpver show --env)")
	cmd.Flags().BoolP("no-fetch", "n", false, "Don't sync tags from remote origin.")
	argparser.AddCommand(cmd)
}

func envInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func envNonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// printEnv prints the version fields in the layout of the version pattern
// field registry, empty values included, for consumption by eval.
func printEnv(vinfo version.VersionInfo, cfg *config.Config) {
	pairs := [][2]string{
		{"YEAR_Y", envInt(vinfo.YearY)},
		{"YEAR_G", envInt(vinfo.YearG)},
		{"QUARTER", envInt(vinfo.Quarter)},
		{"MONTH", envInt(vinfo.Month)},
		{"DOM", envInt(vinfo.Dom)},
		{"DOY", envInt(vinfo.Doy)},
		{"WEEK_W", envInt(vinfo.WeekW)},
		{"WEEK_U", envInt(vinfo.WeekU)},
		{"WEEK_V", envInt(vinfo.WeekV)},
		{"MAJOR", envNonZero(vinfo.Major)},
		{"MINOR", envNonZero(vinfo.Minor)},
		{"PATCH", envNonZero(vinfo.Patch)},
		{"BID", vinfo.BID},
		{"TAG", vinfo.Tag},
		{"PYTAG", vinfo.PyTag},
		{"GITHASH", vinfo.GitHash},
		{"HEXHASH", vinfo.HexHash},
		{"NUM", envNonZero(vinfo.Num)},
		{"INC0", envNonZero(vinfo.Inc0)},
		{"INC1", envNonZero(vinfo.Inc1)},
	}
	for _, pair := range pairs {
		fmt.Printf("%s=%s\n", pair[0], pair[1])
	}
	fmt.Printf("CURRENT_VERSION=%s\n", cfg.CurrentVersion)
	fmt.Printf("PEP440_VERSION=%s\n", cfg.PEP440Version)
}
