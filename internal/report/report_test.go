package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Markdown(t *testing.T) {
	doc := New("Summary").
		Heading("Stats").
		Paragraph("%d rows", 3).
		Table([]string{"a", "b"}, [][]string{{"1", "x|y"}}).
		Image("hist", filepath.Join("plots", "hist.png"))

	md := string(doc.Markdown())
	assert.Contains(t, md, "# Summary\n")
	assert.Contains(t, md, "## Stats\n")
	assert.Contains(t, md, "3 rows")
	assert.Contains(t, md, "| a | b |\n| --- | --- |\n| 1 | x\\|y |")
	assert.Contains(t, md, "![hist](plots/hist.png)")
}

func TestDocument_HTMLAndSave(t *testing.T) {
	doc := New("Summary").Table([]string{"col"}, [][]string{{"v"}})

	page := string(doc.HTML())
	assert.Contains(t, page, "<title>Summary</title>")
	assert.Contains(t, page, "<table>")

	dir := t.TempDir()
	mdPath, htmlPath, err := doc.Save(dir, "eda_summary")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eda_summary.md"), mdPath)

	written, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Equal(t, doc.HTML(), written)
}
