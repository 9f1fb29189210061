package main

import (
	"fmt"
	"log/slog"

	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/config"
	"github.com/japaniel/relex/pkg/gazetteer"
	"github.com/japaniel/relex/pkg/hearst"
	"github.com/japaniel/relex/pkg/lang"
	"github.com/japaniel/relex/pkg/pipeline"
)

// ruleTable resolves the configured rule table for l.
func ruleTable(cfg *config.Config, l *lang.Language) (*hearst.Table, error) {
	if cfg.Extract.RulesFile != "" {
		return hearst.LoadTableFile(cfg.Extract.RulesFile)
	}
	name := cfg.Extract.Rules
	if name == "" {
		name = l.Profile.Rules
	}
	return hearst.Variant(name, cfg.Extract.Extended)
}

// buildLanguage resolves the language and attaches the annotation client.
func buildLanguage(cfg *config.Config) (*lang.Language, error) {
	probe, err := lang.New(cfg.Language, lang.Options{})
	if err != nil {
		return nil, err
	}
	if cfg.Annotator.Endpoint == "" {
		return probe, nil
	}
	client := annotate.NewHTTPClient(cfg.Annotator.Endpoint, probe.Name, cfg.Annotator.Model)
	client.Timeout = cfg.Annotator.Timeout
	return lang.New(probe.Name, lang.Options{Annotator: client})
}

func buildExtractor(cfg *config.Config, logger *slog.Logger, metrics *pipeline.Metrics) (*pipeline.Extractor, error) {
	l, err := buildLanguage(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Extract.Marker != "" {
		l.Profile.Linearizer.Marker = cfg.Extract.Marker
	}
	if cfg.Extract.Width > 0 {
		l.Profile.Classifier.Width = cfg.Extract.Width
	}

	table, err := ruleTable(cfg, l)
	if err != nil {
		return nil, err
	}
	x, err := pipeline.NewExtractor(l, table)
	if err != nil {
		return nil, err
	}
	x.Assembler.DirectLabels = cfg.Extract.DirectLabels
	x.AnnotateTimeout = cfg.Annotator.Timeout
	x.Logger = logger
	x.Metrics = metrics

	if cfg.Extract.Gazetteer != "" {
		entries, err := gazetteer.Load(cfg.Extract.Gazetteer)
		if err != nil {
			return nil, fmt.Errorf("gazetteer: %w", err)
		}
		x.Recognizer = gazetteer.NewRecognizer(entries)
		logger.Debug("Loaded gazetteer", slog.String("path", cfg.Extract.Gazetteer), slog.Int("entries", len(entries)))
	}
	return x, nil
}
