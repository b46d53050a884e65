package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedDomainKeywordsLongestFirst(t *testing.T) {
	c := &ClassifierConfig{
		DomainKeywords: []DomainKeyword{
			{Keyword: "sales", Domain: "sales"},
			{Keyword: "stock level", Domain: "inventory"},
			{Keyword: "churn", Domain: "customers"},
		},
	}

	sorted := c.SortedDomainKeywords()
	assert.Equal(t, "stock level", sorted[0].Keyword)

	for i := 1; i < len(sorted); i++ {
		assert.GreaterOrEqual(t, len(sorted[i-1].Keyword), len(sorted[i].Keyword))
	}
}

func TestSortedDomainKeywordsDoesNotMutateOriginal(t *testing.T) {
	c := &ClassifierConfig{
		DomainKeywords: []DomainKeyword{
			{Keyword: "a", Domain: "x"},
			{Keyword: "bb", Domain: "y"},
		},
	}
	_ = c.SortedDomainKeywords()
	assert.Equal(t, "a", c.DomainKeywords[0].Keyword)
}
