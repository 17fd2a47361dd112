package notification

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	"text/template"

	"github.com/eta/backend/internal/domain/notification"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*
var templateFiles embed.FS

// Email template codes
const (
	CodeOrderPlaced     = "order_placed"
	CodeRegistration    = "registration"
	CodePasswordReset   = "password_reset"
	CodePasswordChanged = "password_changed"
)

// Recipient is the person an email is addressed to
type Recipient struct {
	Email    string
	FullName string
}

// emailTemplate is the parsed subject and bodies of one code. HTML is optional.
type emailTemplate struct {
	subject *template.Template
	body    *template.Template
	html    *htmltemplate.Template
}

// Templates renders the embedded email templates
type Templates struct {
	byCode map[string]*emailTemplate
}

var titleCaser = cases.Title(language.Und)

func funcMap() map[string]any {
	return map[string]any{
		"title": func(s string) string { return titleCaser.String(s) },
		"money": func(d decimal.Decimal, currency string) string {
			return strings.TrimSpace(d.StringFixed(2) + " " + currency)
		},
	}
}

// LoadTemplates parses every embedded template
func LoadTemplates() (*Templates, error) {
	t := &Templates{byCode: make(map[string]*emailTemplate)}
	for _, code := range []string{CodeOrderPlaced, CodeRegistration, CodePasswordReset, CodePasswordChanged} {
		et, err := loadTemplate(code)
		if err != nil {
			return nil, err
		}
		t.byCode[code] = et
	}
	return t, nil
}

func loadTemplate(code string) (*emailTemplate, error) {
	subject, err := readTemplate(code + ".subject.txt")
	if err != nil {
		return nil, err
	}
	body, err := readTemplate(code + ".body.txt")
	if err != nil {
		return nil, err
	}

	et := &emailTemplate{}
	if et.subject, err = template.New(code + ".subject").Funcs(funcMap()).Parse(strings.TrimSpace(subject)); err != nil {
		return nil, fmt.Errorf("parse email template %s subject: %w", code, err)
	}
	if et.body, err = template.New(code + ".body").Funcs(funcMap()).Parse(body); err != nil {
		return nil, fmt.Errorf("parse email template %s body: %w", code, err)
	}

	html, err := readTemplate(code + ".body.html")
	if errors.Is(err, fs.ErrNotExist) {
		return et, nil
	}
	if err != nil {
		return nil, err
	}
	if et.html, err = htmltemplate.New(code + ".html").Funcs(funcMap()).Parse(html); err != nil {
		return nil, fmt.Errorf("parse email template %s html: %w", code, err)
	}
	return et, nil
}

func readTemplate(name string) (string, error) {
	raw, err := templateFiles.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("read email template %s: %w", name, err)
	}
	return string(raw), nil
}

// Render builds the message for code addressed to to
func (t *Templates) Render(code string, to string, data any) (notification.Message, error) {
	et, ok := t.byCode[code]
	if !ok {
		return notification.Message{}, fmt.Errorf("unknown email template %q", code)
	}

	var subject, body, html bytes.Buffer
	if err := et.subject.Execute(&subject, data); err != nil {
		return notification.Message{}, fmt.Errorf("render %s subject: %w", code, err)
	}
	if err := et.body.Execute(&body, data); err != nil {
		return notification.Message{}, fmt.Errorf("render %s body: %w", code, err)
	}
	if et.html != nil {
		if err := et.html.Execute(&html, data); err != nil {
			return notification.Message{}, fmt.Errorf("render %s html: %w", code, err)
		}
	}

	return notification.Message{
		To:      []string{to},
		Subject: strings.Join(strings.Fields(subject.String()), " "),
		Body:    body.String(),
		HTML:    html.String(),
	}, nil
}
