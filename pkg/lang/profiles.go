package lang

import (
	"github.com/japaniel/relex/pkg/annotate"
	"github.com/japaniel/relex/pkg/depgraph"
)

func englishProfile() Profile {
	return Profile{
		Classifier: depgraph.DefaultConfig(),
		AttrLabel:  "attr",
		Tags:       annotate.FineTag,
		Rules:      "default",
		Linearizer: *annotate.NewLinearizer(),
	}
}

// German follows the TIGER labels of spaCy's German models.
func germanProfile() Profile {
	lin := annotate.NewLinearizer()
	lin.StopTokens = []string{
		"der", "die", "das", "den", "dem", "des",
		"ein", "eine", "einen", "einem", "einer", "eines",
	}
	lin.StopAdjectives = nil
	return Profile{
		Classifier: depgraph.Config{
			NounTags:          []string{"NN", "NE", "NNE"},
			SubjectLabel:      "sb",
			PrepositionLabels: []string{"mnr", "op", "pg"},
			Width:             2,
		},
		AttrLabel:  "pd",
		Tags:       annotate.FineTag,
		Rules:      "default",
		Linearizer: *lin,
	}
}

func universalProfile(articles []string) Profile {
	lin := annotate.NewLinearizer()
	lin.StopTokens = articles
	lin.StopAdjectives = nil
	return Profile{
		Classifier: depgraph.Config{
			NounTags:          []string{"NOUN", "PROPN"},
			SubjectLabel:      "nsubj",
			PrepositionLabels: []string{"case", "nmod", "obl"},
			Width:             2,
		},
		Tags:       annotate.CoarsePOS,
		Rules:      "default",
		Linearizer: *lin,
	}
}

func frenchProfile() Profile {
	return universalProfile([]string{"le", "la", "les", "l'", "un", "une", "des", "du"})
}

func spanishProfile() Profile {
	return universalProfile([]string{"el", "la", "los", "las", "un", "una", "unos", "unas"})
}

func japaneseProfile() Profile {
	return Profile{
		Classifier: depgraph.Config{
			NounTags:          []string{"NOUN", "PROPN"},
			SubjectLabel:      "nsubj",
			PrepositionLabels: []string{"case", "nmod", "obl"},
			Width:             2,
		},
		Tags:  annotate.CoarsePOS,
		Rules: "ja",
		Linearizer: annotate.Linearizer{
			Marker: "NP_",
		},
	}
}
