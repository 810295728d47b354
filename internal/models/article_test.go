package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"litscope/internal/models"
)

func TestArticle_HasPubDate(t *testing.T) {
	t.Run("with pub date", func(t *testing.T) {
		now := time.Now()
		a := models.Article{PubDate: &now}
		assert.True(t, a.HasPubDate())
	})

	t.Run("without pub date", func(t *testing.T) {
		a := models.Article{}
		assert.False(t, a.HasPubDate())
	})
}

func TestArticle_AgeYears(t *testing.T) {
	t.Run("no pub date returns zero", func(t *testing.T) {
		a := models.Article{}
		assert.Equal(t, 0.0, a.AgeYears(time.Now()))
	})

	t.Run("two years old", func(t *testing.T) {
		pubDate := time.Now().AddDate(-2, 0, 0)
		a := models.Article{PubDate: &pubDate}
		age := a.AgeYears(time.Now())
		assert.InDelta(t, 2.0, age, 0.02)
	})
}

func TestArticle_MergeNonEmpty(t *testing.T) {
	abstract := "original abstract"
	existing := models.Article{Title: "Original Title", Abstract: &abstract}

	t.Run("blank incoming fields leave existing values untouched", func(t *testing.T) {
		a := existing
		a.MergeNonEmpty(&models.Article{})
		assert.Equal(t, "Original Title", a.Title)
		assert.Equal(t, "original abstract", *a.Abstract)
	})

	t.Run("non-empty incoming fields overwrite existing values", func(t *testing.T) {
		a := existing
		newAbstract := "richer abstract"
		a.MergeNonEmpty(&models.Article{Title: "New Title", Abstract: &newAbstract})
		assert.Equal(t, "New Title", a.Title)
		assert.Equal(t, "richer abstract", *a.Abstract)
	})

	t.Run("whitespace-only incoming title is treated as empty", func(t *testing.T) {
		a := existing
		a.MergeNonEmpty(&models.Article{Title: "   "})
		assert.Equal(t, "Original Title", a.Title)
	})
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normalized", "jane doe", "jane doe"},
		{"mixed case", "Jane Doe", "jane doe"},
		{"extra whitespace", "  Jane   Doe  ", "jane doe"},
		{"tabs and newlines", "Jane\tDoe\n", "jane doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.NormalizeName(tt.input))
		})
	}
}
