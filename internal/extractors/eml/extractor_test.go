package eml

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(content, "\n", "\r\n")), 0o644))
	return path
}

func TestExtractor_Metadata(t *testing.T) {
	e := New()

	assert.Equal(t, "eml", e.Name())
	assert.Equal(t, []string{"message/rfc822"}, e.MIMETypes())
	assert.True(t, e.CanHandle("/inbox/msg.eml"))
	assert.False(t, e.CanHandle("/inbox/msg.txt"))
}

func TestProcessFile_PlainText(t *testing.T) {
	msg := `From: "Dr. Amy LiCause" <licause@clinic.example>
To: patient@example.com
Subject: Follow-up after your visit
Date: Wed, 14 Feb 2018 10:00:00 +0000
Content-Type: text/plain; charset=utf-8

Your diagnosis of hypermobile EDS was confirmed.

Continue physical therapy.
`
	doc, err := New().ProcessFile(context.Background(), writeFile(t, "visit.eml", msg))
	require.NoError(t, err)

	assert.Equal(t, "Follow-up after your visit", doc.Title)
	assert.Equal(t, []string{"Dr. Amy LiCause"}, doc.Metadata.Providers)
	assert.Equal(t, []string{"2018-02-14"}, doc.Metadata.Dates)
	assert.Equal(t, "patient@example.com", doc.Metadata.Extra["to"])
	require.GreaterOrEqual(t, len(doc.Sections), 3)
	assert.Equal(t, "header", doc.Sections[0].Kind)
	assert.Contains(t, doc.Content, "hypermobile EDS was confirmed")
	assert.Equal(t, domain.StageExtracted, doc.State)
}

func TestProcessFile_MultipartPrefersPlain(t *testing.T) {
	msg := `From: portal@hospital.example
Subject: Lab results
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Ferritin 12 ng/mL
--XYZ
Content-Type: text/html; charset=utf-8

<p>Ferritin <b>12</b> ng/mL (html)</p>
--XYZ--
`
	doc, err := New().ProcessFile(context.Background(), writeFile(t, "labs.eml", msg))
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "Ferritin 12 ng/mL")
	assert.NotContains(t, doc.Content, "(html)")
	assert.Empty(t, doc.Metadata.Providers)
}

func TestProcessFile_HTMLOnly(t *testing.T) {
	msg := `From: "Jane Smith, MD" <js@clinic.example>
Subject: Note
Content-Type: text/html; charset=utf-8

<html><body><h2>Plan</h2><p>Start <strong>Metformin</strong> 500 mg daily.</p></body></html>
`
	doc, err := New().ProcessFile(context.Background(), writeFile(t, "note.eml", msg))
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "Start Metformin 500 mg daily.")
	assert.NotContains(t, doc.Content, "<p>")
	assert.Equal(t, []string{"Jane Smith, MD"}, doc.Metadata.Providers)
}

func TestProcessFile_QuotedPrintable(t *testing.T) {
	msg := `Subject: QP
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

Blood pressure =3D 120/80
`
	doc, err := New().ProcessFile(context.Background(), writeFile(t, "qp.eml", msg))
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "Blood pressure = 120/80")
}

func TestProcessFile_NotAMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.eml")
	require.NoError(t, os.WriteFile(path, []byte("no headers here"), 0o644))

	_, err := New().ProcessFile(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}

func TestDecodeHeader(t *testing.T) {
	assert.Equal(t, "Résultats", decodeHeader("=?UTF-8?Q?R=C3=A9sultats?="))
	assert.Equal(t, "plain", decodeHeader("plain"))
	assert.Equal(t, "", decodeHeader(""))
}
