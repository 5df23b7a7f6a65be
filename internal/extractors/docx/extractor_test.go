package docx

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

const documentXMLFixture = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Intro line before any heading.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Diagnoses</w:t></w:r></w:p>
<w:p><w:r><w:t>hypermobile </w:t></w:r><w:r><w:t>EDS</w:t></w:r></w:p>
<w:p><w:r><w:t>POTS</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Medications</w:t></w:r></w:p>
<w:p><w:r><w:t>Metformin</w:t></w:r><w:r><w:tab/><w:t>500 mg</w:t></w:r></w:p>
</w:body>
</w:document>`

const coreXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
<dc:title>Clinic Letter</dc:title>
<dc:creator>Dr. LiCause</dc:creator>
<dcterms:created>2018-02-14T09:00:00Z</dcterms:created>
</cp:coreProperties>`

func writeDocx(t *testing.T, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "letter.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractor_Metadata(t *testing.T) {
	e := New()

	assert.Equal(t, "docx", e.Name())
	assert.True(t, e.CanHandle("/letters/a.DOCX"))
	assert.False(t, e.CanHandle("/letters/a.doc"))
}

func TestProcessFile_Success(t *testing.T) {
	path := writeDocx(t, map[string]string{
		"word/document.xml": documentXMLFixture,
		"docProps/core.xml": coreXMLFixture,
	})

	doc, err := New().ProcessFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Clinic Letter", doc.Title)
	assert.Equal(t, "Dr. LiCause", doc.Metadata.Extra["author"])
	assert.Equal(t, []string{"2018-02-14T09:00:00Z"}, doc.Metadata.Dates)
	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "body", doc.Sections[0].Kind)
	assert.Equal(t, "Diagnoses", doc.Sections[1].Title)
	assert.Equal(t, "Diagnoses\nhypermobile EDS\nPOTS", doc.Sections[1].Text)
	assert.Equal(t, "Medications\nMetformin 500 mg", doc.Sections[2].Text)
	assert.Equal(t, domain.StageExtracted, doc.State)
}

func TestProcessFile_WithoutCoreProps(t *testing.T) {
	path := writeDocx(t, map[string]string{"word/document.xml": documentXMLFixture})

	doc, err := New().ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "letter", doc.Title)
}

func TestProcessFile_Invalid(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.docx")
		require.NoError(t, os.WriteFile(path, []byte("plain"), 0o644))

		_, err := New().ProcessFile(context.Background(), path)
		assert.ErrorIs(t, err, domain.ErrExtractionFailure)
	})

	t.Run("missing document part", func(t *testing.T) {
		path := writeDocx(t, map[string]string{"docProps/core.xml": coreXMLFixture})

		_, err := New().ProcessFile(context.Background(), path)
		assert.ErrorIs(t, err, domain.ErrExtractionFailure)
	})
}
