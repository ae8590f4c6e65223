package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yacobolo/sitecss"
)

var expandCmd = &cobra.Command{
	Use:   "expand <classes...>",
	Short: "Show how class names expand",
	Long: `Expand class names through the macro source and report tokens the
utilities stylesheet does not define, with the closest known names.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(_ *cobra.Command, args []string) error {
		config, err := buildSiteConfig()
		if err != nil {
			return err
		}

		explanation, err := sitecss.Explain(config, args)
		if err != nil {
			return err
		}

		quiet := getBoolWithFallback("quiet", "quiet", false)
		format := sitecss.DetermineOutputFormat(getStringWithFallback("output-format", "output-format", ""), quiet)
		useColors := sitecss.ShouldUseColors(getBoolWithFallback("color", "color", false))
		if err := sitecss.WriteExplanation(os.Stdout, explanation, format, useColors); err != nil {
			return err
		}

		if getBoolWithFallback("strict", "expand.strict", false) {
			for _, c := range explanation.Classes {
				if len(c.Unknown) > 0 {
					return fmt.Errorf("unknown tokens in %q", c.Class)
				}
			}
		}
		return nil
	},
}

func init() {
	addSiteFlags(expandCmd)
	expandCmd.Flags().String("output-format", "", "Report format: summary|json")
	expandCmd.Flags().Bool("strict", false, "Exit 1 when a token is unknown")
}
