package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/relex/pkg/config"
	"github.com/japaniel/relex/pkg/hearst"
	"github.com/japaniel/relex/pkg/lang"
)

func (a *app) patternsCmd() *cobra.Command {
	var list bool
	var match string

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the Hearst rule tables",
		Example: `  relex patterns --list
  relex patterns --rules greedy --extended
  relex patterns --match "NP_fruit such as NP_apple and NP_orange"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, name := range hearst.Variants() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			l, err := lang.New(cfg.Language, lang.Options{})
			if err != nil {
				return err
			}
			table, err := ruleTable(cfg, l)
			if err != nil {
				return err
			}

			if match != "" {
				marker := cfg.Extract.Marker
				if marker == "" {
					marker = l.Profile.Linearizer.Marker
				}
				m, err := hearst.NewMatcher(table, hearst.WithMarker(marker))
				if err != nil {
					return err
				}
				for _, mt := range m.Match(match) {
					fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", mt.Rule, mt.Label, mt.General, strings.Join(mt.Specifics, ", "))
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "# %s (%d rules; labels: %s)\n", table.Name(), table.Len(), strings.Join(table.Labels(), ", "))
			for i, r := range table.Rules() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i, r.Label, r.Direction, r.Groups, r.Pattern)
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.BoolVar(&list, "list", false, "List the built-in rule table variants")
	f.StringVar(&match, "match", "", "Match a noun-phrase-marked sentence against the table")
	f.StringP(config.KeyLanguage, "l", "en", "Language whose default table is shown")
	f.String(config.KeyRules, "", "Rule table variant")
	f.Bool(config.KeyExtended, false, "Append the extended rule set")
	f.String(config.KeyRulesFile, "", "Load rules from a YAML file")
	f.String(config.KeyMarker, "", "Noun-phrase marker for --match")
	return cmd
}
