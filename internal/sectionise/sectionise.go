// Package sectionise splits extracted article text into ranked sections
// with stable intra-article IDs.
package sectionise

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"contextapi/internal/models"
)

// MaxSectionChars caps the paragraph character total packed into one section.
const MaxSectionChars = 2000

// blurbChars is the outline preview length.
const blurbChars = 160

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Result pairs the stored sections with their outline entries.
type Result struct {
	Sections []models.Section
	Outline  []models.OutlineEntry
}

// Split packs the text's paragraphs into sections of at most MaxSectionChars
// characters. Section IDs are "s01", "s02", ... and always match the rank.
// Empty input yields empty slices.
func Split(articleID, text string) *Result {
	result := &Result{
		Sections: []models.Section{},
		Outline:  []models.OutlineEntry{},
	}

	var paragraphs []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return result
	}

	var buffer []string
	bufferChars := 0
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		rank := len(result.Sections) + 1
		section := models.Section{
			ArticleID: articleID,
			SectionID: SectionID(rank),
			Heading:   fmt.Sprintf("Section %d", rank),
			Content:   strings.Join(buffer, "\n\n"),
			Rank:      rank,
		}
		result.Sections = append(result.Sections, section)
		result.Outline = append(result.Outline, models.OutlineEntry{
			SectionID: section.SectionID,
			Heading:   section.Heading,
			Blurb:     blurb(section.Content),
		})
		buffer = nil
		bufferChars = 0
	}

	for _, p := range paragraphs {
		if len(buffer) > 0 && bufferChars+len(p) > MaxSectionChars {
			flush()
		}
		buffer = append(buffer, p)
		bufferChars += len(p)
	}
	flush()

	return result
}

// SectionID formats a 1-based rank as the stable section identifier.
func SectionID(rank int) string {
	return fmt.Sprintf("s%02d", rank)
}

func blurb(content string) string {
	if len(content) > blurbChars {
		// Back up so the cut never splits a multi-byte rune.
		cut := blurbChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}
	return strings.TrimSpace(content)
}
