package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/japaniel/relex/pkg/config"
	"github.com/japaniel/relex/pkg/db"
	"github.com/japaniel/relex/pkg/hypernymy"
)

func (a *app) scoreCmd() *cobra.Command {
	var sourceID int64
	var labels []string
	var pairs, term string

	cmd := &cobra.Command{
		Use:   "score [hyponym hypernym]",
		Short: "Score hypernym pairs against stored triples",
		Long: `Score prints 1.0 when the two terms are linked by a stored hypernym
triple in either direction and 0.0 otherwise. With --pairs, every
"hyponym<TAB>hypernym" line of the file (or - for stdin) is scored.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if pairs != "" || term != "" {
				if len(args) != 0 {
					return errors.New("--pairs and --term do not take arguments")
				}
				return nil
			}
			if len(args) != 2 {
				return errors.New("expected a hyponym and a hypernym, --pairs or --term")
			}
			return nil
		},
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

			idx, err := hypernymy.Load(conn, sourceID, labels...)
			if err != nil {
				return err
			}
			a.logger.Debug("Loaded hypernym index", "pairs", idx.Len())

			out := cmd.OutOrStdout()
			if term != "" {
				for _, h := range idx.Hypernyms(term) {
					fmt.Fprintf(out, "hypernym\t%s\n", h)
				}
				for _, h := range idx.Hyponyms(term) {
					fmt.Fprintf(out, "hyponym\t%s\n", h)
				}
				return nil
			}
			if pairs == "" {
				fmt.Fprintln(out, strconv.FormatFloat(idx.Predict(args[0], args[1]), 'f', 1, 64))
				return nil
			}
			var in io.Reader = cmd.InOrStdin()
			if pairs != "-" {
				f, err := os.Open(pairs)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return idx.ScoreTSV(in, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&pairs, "pairs", "", "Score every pair of a TSV file (- for stdin)")
	f.StringVar(&term, "term", "", "List the known hypernyms and hyponyms of a term")
	f.Int64Var(&sourceID, "source", 0, "Only use triples of this source ID")
	f.StringSliceVar(&labels, "label", nil, "Labels read as hypernym links (default hypernym, typeOf)")
	f.String(config.KeyDB, "", "SQLite database")
	return cmd
}
