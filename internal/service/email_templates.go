package service

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

const shareEmailTemplate = `## Document Shared With You

A secure document **%q** has been shared with you.

[View Document](%s)

Use this **Access Code** to unlock it:

# %s

This link expires in %d days. If you did not expect this, please ignore this email.
`

const loginEmailTemplate = `## Your Login Code

Your verification code is:

# %s

It expires in %d minutes. If you did not request it, please ignore this email.
`

func renderShareEmail(fileName, shareLink, code string, ttlDays int) (string, error) {
	md := fmt.Sprintf(shareEmailTemplate, fileName, shareLink, code, ttlDays)
	return renderMarkdown(md)
}

func renderLoginEmail(code string, ttlMinutes int) (string, error) {
	md := fmt.Sprintf(loginEmailTemplate, code, ttlMinutes)
	return renderMarkdown(md)
}

func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
