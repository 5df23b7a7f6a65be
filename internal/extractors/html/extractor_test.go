package html

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractor_Metadata(t *testing.T) {
	e := New()

	assert.Equal(t, "html", e.Name())
	assert.True(t, e.CanHandle("/portal/summary.html"))
	assert.True(t, e.CanHandle("/portal/summary.HTM"))
	assert.False(t, e.CanHandle("/portal/summary.md"))
	assert.Contains(t, e.MIMETypes(), "text/html")
}

func TestProcessFile_Sections(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>Visit Summary</title><style>p{color:red}</style></head>
<body>
<nav>Home | Messages</nav>
<h1>Visit Summary</h1>
<p>Diagnosis: <b>hypermobile EDS</b>.</p>
<p style="display:none">secret tracking text</p>
<ul><li>Metformin 500 mg</li><li>Vitamin D</li></ul>
<table><tr><td>Ferritin</td><td>12 ng/mL</td></tr></table>
<script>var x = "ignored";</script>
</body></html>`

	doc, err := New().ProcessFile(context.Background(), writeFile(t, "summary.html", page))
	require.NoError(t, err)

	assert.Equal(t, "Visit Summary", doc.Title)
	assert.Equal(t, domain.StageExtracted, doc.State)
	require.Len(t, doc.Sections, 4)
	assert.Equal(t, "heading", doc.Sections[0].Kind)
	assert.Equal(t, "Diagnosis: hypermobile EDS .", doc.Sections[1].Text)
	assert.Equal(t, "list", doc.Sections[2].Kind)
	assert.Equal(t, "Metformin 500 mg Vitamin D", doc.Sections[2].Text)
	assert.Equal(t, "table", doc.Sections[3].Kind)
	assert.NotContains(t, doc.Content, "secret")
	assert.NotContains(t, doc.Content, "ignored")
	assert.NotContains(t, doc.Content, "Messages")
}

func TestProcessFile_BareText(t *testing.T) {
	doc, err := New().ProcessFile(context.Background(), writeFile(t, "bare.html", "<div>Seen by Dr. LiCause</div>"))
	require.NoError(t, err)

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Seen by Dr. LiCause", doc.Content)
	assert.Equal(t, "bare", doc.Title)
}

func TestProcessFile_NoText(t *testing.T) {
	_, err := New().ProcessFile(context.Background(), writeFile(t, "empty.html", "<html><body><script>x()</script></body></html>"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}
