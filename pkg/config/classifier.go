package config

import "sort"

// DomainKeyword binds a matched keyword to the domain it signals. Longer,
// more specific keywords must be tested before shorter ones they happen to
// contain (e.g. a keyword for "inventory" before one for "sales" if the
// latter is a substring of the former in some locale) — ClassifierConfig's
// SortedDomainKeywords returns entries by descending keyword length so
// callers can iterate in match-priority order. It sorts a fresh copy on
// every call.
type DomainKeyword struct {
	Keyword string `yaml:"keyword" validate:"required"`
	Domain  string `yaml:"domain" validate:"required"`
}

// ClassifierConfig holds the keyword vocabularies the Intent Classifier's
// deterministic stage matches against before falling back to the LLM.
type ClassifierConfig struct {
	ConversationalPatterns []string        `yaml:"conversational_patterns,omitempty"`
	AmbiguityPronouns      []string        `yaml:"ambiguity_pronouns,omitempty"`
	DataVocabulary         []string        `yaml:"data_vocabulary,omitempty"`
	DashboardVocabulary    []string        `yaml:"dashboard_vocabulary,omitempty"`
	DomainKeywords         []DomainKeyword `yaml:"domain_keywords,omitempty"`
}

// SortedDomainKeywords returns DomainKeywords ordered longest-keyword-first,
// the order the classifier must test them in.
func (c *ClassifierConfig) SortedDomainKeywords() []DomainKeyword {
	out := make([]DomainKeyword, len(c.DomainKeywords))
	copy(out, c.DomainKeywords)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Keyword) > len(out[j].Keyword)
	})
	return out
}
