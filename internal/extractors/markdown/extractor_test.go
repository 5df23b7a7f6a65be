package markdown

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

	assert.Equal(t, "markdown", e.Name())
	assert.Equal(t, 50, e.Priority())
	assert.True(t, e.CanHandle("notes/README.md"))
	assert.True(t, e.CanHandle("notes/visit.markdown"))
	assert.False(t, e.CanHandle("notes/visit.txt"))
}

func TestProcessFile_HeadingsAndFormatting(t *testing.T) {
	content := `# Rheumatology Visit

Seen by **Dr. LiCause** for [joint pain](http://example.com).

## Assessment

- hypermobile EDS
- <span style="color:red">Crohn's</span> disease in remission

` + "```\nignored code\n```\n"

	doc, err := New().ProcessFile(context.Background(), writeFile(t, "visit.md", content))
	require.NoError(t, err)

	assert.Equal(t, "Rheumatology Visit", doc.Title)
	assert.Equal(t, domain.StageExtracted, doc.State)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Rheumatology Visit", doc.Sections[0].Title)
	assert.Contains(t, doc.Sections[0].Text, "Seen by Dr. LiCause for joint pain.")
	assert.Equal(t, "Assessment", doc.Sections[1].Title)
	assert.Contains(t, doc.Sections[1].Text, "hypermobile EDS")
	assert.Contains(t, doc.Sections[1].Text, "Crohn's disease in remission")
	assert.NotContains(t, doc.Content, "<span")
	assert.NotContains(t, doc.Content, "ignored code")
	assert.NotContains(t, doc.Content, "**")
}

func TestProcessFile_NoHeadingKeepsFilenameTitle(t *testing.T) {
	doc, err := New().ProcessFile(context.Background(), writeFile(t, "lab_results.md", "Ferritin 12 ng/mL"))
	require.NoError(t, err)

	assert.Equal(t, "lab results", doc.Title)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "body", doc.Sections[0].Kind)
}

func TestProcessFile_Empty(t *testing.T) {
	_, err := New().ProcessFile(context.Background(), writeFile(t, "empty.md", "```\nonly code\n```"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}
