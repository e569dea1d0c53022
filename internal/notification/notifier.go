package notification

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// Notifier delivers a verification link to an address.
type Notifier interface {
	SendVerification(ctx context.Context, address, token string) error
}

type linkData struct {
	Token string
}

type LinkBuilder struct {
	tmpl *template.Template
}

// NewLinkBuilder parses a URL template that references {{.Token}}.
func NewLinkBuilder(urlTemplate string) (*LinkBuilder, error) {
	tmpl, err := template.New("verification_url").Option("missingkey=error").Parse(urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification url template: %w", err)
	}
	return &LinkBuilder{tmpl: tmpl}, nil
}

func (b *LinkBuilder) Build(token string) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, linkData{Token: token}); err != nil {
		return "", fmt.Errorf("failed to render verification url: %w", err)
	}
	return buf.String(), nil
}

func verificationBody(link string) string {
	return "Welcome to Margarine!\n\n" +
		"Confirm your email address by opening the link below:\n\n" +
		link + "\n\n" +
		"If you did not sign up, you can ignore this message.\n"
}
