// Package content holds the outline and content-document shapes exchanged
// with the model and persisted on a generation record.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidOutline = errors.New("invalid outline")

type ChapterSpec struct {
	ChapterNumber int      `json:"chapter_number"`
	Title         string   `json:"title"`
	Topics        []string `json:"topics"`
	Description   string   `json:"description,omitempty"`
}

type Outline struct {
	Title      string        `json:"title"`
	Objectives []string      `json:"objectives"`
	Chapters   []ChapterSpec `json:"chapters"`
}

type ChapterResult struct {
	ChapterNumber int      `json:"chapter_number"`
	Title         string   `json:"title"`
	Topics        []string `json:"topics"`
	Description   string   `json:"description"`
	Content       string   `json:"content"`
	Questions     string   `json:"questions"`
}

type Document struct {
	Title      string          `json:"title"`
	Objectives []string        `json:"objectives"`
	Chapters   []ChapterResult `json:"chapters"`
}

// StripFences removes a surrounding ```json ... ``` fence models like to add.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string ("json") on the opening line.
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseOutline decodes model outline text. Any syntax or shape problem yields
// an error wrapping ErrInvalidOutline; an explicit empty chapter list is valid.
func ParseOutline(text string) (Outline, error) {
	var raw struct {
		Title      string         `json:"title"`
		Objectives []string       `json:"objectives"`
		Chapters   *[]ChapterSpec `json:"chapters"`
	}
	if err := json.Unmarshal([]byte(StripFences(text)), &raw); err != nil {
		return Outline{}, fmt.Errorf("%w: %v", ErrInvalidOutline, err)
	}
	if raw.Chapters == nil {
		return Outline{}, fmt.Errorf("%w: missing chapters", ErrInvalidOutline)
	}
	for i, ch := range *raw.Chapters {
		if ch.ChapterNumber <= 0 {
			return Outline{}, fmt.Errorf("%w: chapter %d has no positive chapter_number", ErrInvalidOutline, i+1)
		}
		if strings.TrimSpace(ch.Title) == "" {
			return Outline{}, fmt.Errorf("%w: chapter %d has no title", ErrInvalidOutline, i+1)
		}
	}
	return Outline{Title: raw.Title, Objectives: raw.Objectives, Chapters: *raw.Chapters}, nil
}

// Chapter finds the chapter spec with the given number.
func (o Outline) Chapter(number int) (ChapterSpec, bool) {
	for _, ch := range o.Chapters {
		if ch.ChapterNumber == number {
			return ch, true
		}
	}
	return ChapterSpec{}, false
}

// Skeleton is an empty document carrying the outline's title and objectives.
func Skeleton(o Outline) Document {
	return Document{Title: o.Title, Objectives: o.Objectives, Chapters: []ChapterResult{}}
}

func ParseDocument(text string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(StripFences(text)), &doc); err != nil {
		return Document{}, err
	}
	if doc.Chapters == nil {
		doc.Chapters = []ChapterResult{}
	}
	return doc, nil
}

// Marshal renders the document as indented JSON, leaving non-ASCII text and
// HTML-significant characters unescaped.
func (d Document) Marshal() (string, error) {
	if d.Chapters == nil {
		d.Chapters = []ChapterResult{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Merge replaces the chapter with the same number in place, or appends it.
// It reports whether an existing chapter was replaced.
func (d *Document) Merge(ch ChapterResult) bool {
	for i := range d.Chapters {
		if d.Chapters[i].ChapterNumber == ch.ChapterNumber {
			d.Chapters[i] = ch
			return true
		}
	}
	d.Chapters = append(d.Chapters, ch)
	return false
}

func ResultFor(spec ChapterSpec, body, questions string) ChapterResult {
	topics := spec.Topics
	if topics == nil {
		topics = []string{}
	}
	return ChapterResult{
		ChapterNumber: spec.ChapterNumber,
		Title:         spec.Title,
		Topics:        topics,
		Description:   spec.Description,
		Content:       body,
		Questions:     questions,
	}
}
