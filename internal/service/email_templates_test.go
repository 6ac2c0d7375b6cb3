package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderShareEmail(t *testing.T) {
	html, err := renderShareEmail("report.pdf", "https://docs.test/View_Document?share_id=abc", "123456", 7)
	require.NoError(t, err)
	require.Contains(t, html, "report.pdf")
	require.Contains(t, html, `href="https://docs.test/View_Document?share_id=abc"`)
	require.Contains(t, html, "<h1>123456</h1>")
	require.Contains(t, html, "7 days")
}

func TestRenderLoginEmail(t *testing.T) {
	html, err := renderLoginEmail("654321", 10)
	require.NoError(t, err)
	require.Contains(t, html, "<h1>654321</h1>")
	require.Contains(t, html, "10 minutes")
}
