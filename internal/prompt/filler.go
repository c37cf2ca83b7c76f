package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formcompiler/pkg/fieldtype"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/schema"
	"github.com/goliatone/go-formcompiler/pkg/validation"
)

// DefaultAttempts bounds how often a rejected answer is asked again.
const DefaultAttempts = 3

// NoneOption is offered first on optional select fields.
const NoneOption = "(none)"

// Option customises a Filler.
type Option func(*Filler)

// WithAttempts sets how many times a field is asked before the last answer
// is kept as is and left to the final validation.
func WithAttempts(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithLocale selects the message locale for answer feedback and the final
// result.
func WithLocale(loc string) Option {
	return func(f *Filler) { f.callOpts = append(f.callOpts, validation.WithLocale(loc)) }
}

// WithExtras exposes caller context to expression conditions.
func WithExtras(extras map[string]any) Option {
	return func(f *Filler) {
		f.extras = extras
		f.callOpts = append(f.callOpts, validation.WithExtras(extras))
	}
}

// Filler walks a compiled form and asks for every visible field.
type Filler struct {
	driver   Driver
	runner   *validation.Runner
	attempts int
	extras   map[string]any
	callOpts []validation.CallOption
}

// NewFiller returns a Filler asking through driver and reporting messages
// through runner.
func NewFiller(driver Driver, runner *validation.Runner, options ...Option) *Filler {
	f := &Filler{driver: driver, runner: runner, attempts: DefaultAttempts}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fill asks for each field in declaration order, skipping fields hidden by
// the answers given so far, then validates the collected answers.
func (f *Filler) Fill(ctx context.Context, s *schema.Schema) (validation.ValidateResult, error) {
	answers := make(map[string]any)
	for _, field := range s.Metadata().Fields {
		visible := s.Visibility(answers, f.extras)
		if !visible[field.ID] {
			delete(answers, field.Name)
			continue
		}
		frag, ok := s.Fragment(field.Name)
		if !ok {
			continue
		}
		value, err := f.askField(ctx, field, frag)
		if err != nil {
			return validation.ValidateResult{}, fmt.Errorf("prompt: %s: %w", field.Name, err)
		}
		answers[field.Name] = value
	}
	return f.runner.ValidateSchema(s, answers, f.callOpts...), nil
}

func (f *Filler) askField(ctx context.Context, field metadata.FormField, frag *fieldtype.Fragment) (any, error) {
	for attempt := 1; ; attempt++ {
		raw, err := f.ask(ctx, field, frag)
		if err != nil {
			return nil, err
		}
		msg := f.check(field, frag, raw)
		if msg == "" || attempt >= f.attempts {
			return raw, nil
		}
		if err := f.driver.Info(ctx, msg); err != nil {
			return nil, err
		}
	}
}

func (f *Filler) check(field metadata.FormField, frag *fieldtype.Fragment, raw any) string {
	_, _, issue := frag.Apply(raw)
	if issue == nil {
		return ""
	}
	return f.runner.IssueMessage(schema.FieldIssue{
		FieldID: field.ID,
		Field:   field.Name,
		Label:   field.Label,
		Issue:   *issue,
	}, f.callOpts...)
}

func (f *Filler) ask(ctx context.Context, field metadata.FormField, frag *fieldtype.Fragment) (any, error) {
	message := field.Label
	if message == "" {
		message = field.Name
	}
	help := field.Description
	if help == "" {
		help = field.Placeholder
	}

	switch frag.Kind().(type) {
	case fieldtype.Checkbox:
		return f.driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help})
	case fieldtype.Select:
		return f.askSelect(ctx, field, frag, message, help)
	case fieldtype.TextArea:
		return f.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: help})
	case fieldtype.Date:
		if help == "" {
			help = "YYYY-MM-DD"
		}
	}

	return f.driver.Input(ctx, InputConfig{
		Message: message,
		Help:    help,
		Validator: func(answer string) error {
			if msg := f.check(field, frag, answer); msg != "" {
				return errors.New(msg)
			}
			return nil
		},
	})
}

func (f *Filler) askSelect(ctx context.Context, field metadata.FormField, frag *fieldtype.Fragment, message, help string) (any, error) {
	var (
		labels []string
		values []string
	)
	if !frag.Required() {
		labels = append(labels, NoneOption)
		values = append(values, "")
	}
	for _, opt := range field.Options {
		labels = append(labels, opt.DisplayLabel())
		values = append(values, opt.Value)
	}

	idx, err := f.driver.Select(ctx, SelectConfig{Message: message, Help: help, Options: labels, DefaultIndex: -1})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		return "", nil
	}
	return values[idx], nil
}
