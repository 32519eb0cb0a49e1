package attach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestConvertsAndSanitizes(t *testing.T) {
	html := `<p>Use <strong>postgres</strong> for storage.</p><script>alert(1)</script>`
	markdown, err := Ingest(html)
	require.NoError(t, err)
	assert.Contains(t, markdown, "postgres")
	assert.NotContains(t, markdown, "<script>")
	assert.NotContains(t, markdown, "alert(1)")
}

func TestNewAttachmentFieldsRoundTrip(t *testing.T) {
	a := New("url", "https://example.com/doc", "Design doc")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "url", a.Kind)
	assert.Equal(t, "https://example.com/doc", a.URI)
	assert.Equal(t, "Design doc", a.Title)
}
