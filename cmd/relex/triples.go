package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/relex/pkg/assemble"
	"github.com/japaniel/relex/pkg/config"
	"github.com/japaniel/relex/pkg/db"
	"github.com/japaniel/relex/pkg/relation"
)

func (a *app) triplesCmd() *cobra.Command {
	var filter db.TripleFilter
	var sources bool

	cmd := &cobra.Command{
		Use:   "triples",
		Short: "Query triples stored by extract --db",
		Example: `  relex triples --db relex.db --label typeOf
  relex triples --db relex.db --subject copper --format jsonl
  relex triples --db relex.db --sources`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.Path == "" {
				return errors.New("--db is required")
			}
			conn, err := db.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer conn.Close()

			out := cmd.OutOrStdout()
			if sources {
				list, err := db.ListSources(conn)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tLANG\tTITLE\tURL\tPROGRESS\tADDED")
				for _, s := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", s.ID, s.SourceType, s.Language,
						s.Title, s.URL, s.LastProcessedSentence, s.AddedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			}

			if strings.EqualFold(cfg.Output.Format, config.FormatNone) {
				return errors.New("format none prints nothing")
			}
			stored, err := db.QueryTriples(conn, filter)
			if err != nil {
				return err
			}
			w, err := assemble.NewWriter(out, cfg.Output.Format)
			if err != nil {
				return err
			}
			if err := w.Write(storedTriples(stored)); err != nil {
				return err
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.BoolVar(&sources, "sources", false, "List stored sources instead of triples")
	f.Int64Var(&filter.SourceID, "source", 0, "Only triples of this source ID")
	f.StringSliceVar(&filter.Labels, "label", nil, "Only these labels")
	f.StringVar(&filter.Subject, "subject", "", "Only this subject (case-insensitive)")
	f.StringVar(&filter.Object, "object", "", "Only this object (case-insensitive)")
	f.StringVar(&filter.Origin, "origin", "", "Only triples from this engine (pattern, dependency)")
	f.IntVar(&filter.Limit, "limit", 0, "Maximum number of triples")
	f.String(config.KeyDB, "", "SQLite database")
	f.String(config.KeyFormat, "tsv", "Output format (tsv, jsonl)")
	return cmd
}

func storedTriples(stored []db.Triple) []relation.Triple {
	out := make([]relation.Triple, 0, len(stored))
	for _, t := range stored {
		out = append(out, relation.Triple{
			Subject: relation.TextTerm(t.Subject),
			Predicate: relation.Predicate{
				Label:      t.Label,
				Modifiers:  t.Modifiers,
				Attributes: t.Attributes,
			},
			Object: relation.TextTerm(t.Object),
			Source: relation.Source(t.Origin),
		})
	}
	return out
}
