package prompts

import (
	"errors"
	"strings"
)

type Validator func(Input) error

var (
	ErrMissingSubject = errors.New("subject is required")
	ErrMissingGrade   = errors.New("grade is required")
	ErrMissingUnit    = errors.New("unit is required")
)

func requireScope(in Input) error {
	switch {
	case strings.TrimSpace(in.Subject) == "":
		return ErrMissingSubject
	case strings.TrimSpace(in.Grade) == "":
		return ErrMissingGrade
	case strings.TrimSpace(in.Unit) == "":
		return ErrMissingUnit
	}
	return nil
}

func require(field string, get func(Input) string) Validator {
	return func(in Input) error {
		if strings.TrimSpace(get(in)) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func requireChapter(in Input) error {
	if in.ChapterNumber <= 0 {
		return errors.New("chapter number must be positive")
	}
	if strings.TrimSpace(in.ChapterTitle) == "" {
		return errors.New("chapter title is required")
	}
	return nil
}
