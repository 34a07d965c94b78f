package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yungbote/materialgen-backend/internal/learning/questions"
)

// Spec is the declaration format each prompt is written in.
type Spec struct {
	Name    PromptName
	Version int
	// Completion settings the stage is tuned for.
	Temperature float64
	MaxTokens   int
	// Plain strings or go templates over Input.
	System     string
	User       string
	Validators []Validator
}

var funcs = template.FuncMap{
	"questionExample": questions.Example,
	"questionRules":   questions.Rules,
}

// MakeTemplate compiles a Spec into a Template (runtime type)
func MakeTemplate(s Spec) (Template, error) {
	if strings.TrimSpace(string(s.Name)) == "" {
		return Template{}, fmt.Errorf("missing prompt name")
	}
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", s.Name)
	}
	if s.MaxTokens <= 0 {
		return Template{}, fmt.Errorf("missing max tokens for %s", s.Name)
	}
	sysT, err := template.New("system").Option("missingkey=zero").Funcs(funcs).Parse(s.System)
	if err != nil {
		return Template{}, fmt.Errorf("%s system template parse: %w", s.Name, err)
	}
	userT, err := template.New("user").Option("missingkey=zero").Funcs(funcs).Parse(s.User)
	if err != nil {
		return Template{}, fmt.Errorf("%s user template parse: %w", s.Name, err)
	}
	render := func(t *template.Template, in Input) (string, error) {
		var b bytes.Buffer
		if err := t.Execute(&b, in); err != nil {
			return "", err
		}
		return strings.TrimSpace(b.String()), nil
	}
	tt := Template{
		Name:        s.Name,
		Version:     s.Version,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		System:      func(in Input) (string, error) { return render(sysT, in) },
		User:        func(in Input) (string, error) { return render(userT, in) },
	}
	if len(s.Validators) > 0 {
		tt.Validate = func(in Input) error {
			for _, v := range s.Validators {
				if v == nil {
					continue
				}
				if err := v(in); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return tt, nil
}

// RegisterSpec is the one-liner used by registerAll.
func RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	Register(t)
}
