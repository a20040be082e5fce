package printing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakePandoc = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
printf '%%PDF-1.4 pandoc' > "$out"
`

const fakeSoffice = `outdir=""; in=""
while [ $# -gt 0 ]; do
  case "$1" in
    --outdir) outdir="$2"; shift ;;
    -*|pdf) ;;
    *) in="$1" ;;
  esac
  shift
done
base=$(basename "$in" .docx)
printf '%%PDF-1.4 soffice' > "$outdir/$base.pdf"
`

func requireRenderCode(t *testing.T, err error, code string) {
	t.Helper()
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, code, renderErr.Code)
}

func convertPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "temp_INV2025001.docx")
	require.NoError(t, os.WriteFile(in, []byte("docx"), 0o600))
	return in, filepath.Join(dir, "temp_INV2025001.pdf")
}

func TestPandocConverter(t *testing.T) {
	t.Run("converts", func(t *testing.T) {
		c, err := NewPandocConverter(&PandocConfig{BinaryPath: writeScript(t, "pandoc", fakePandoc)})
		require.NoError(t, err)
		assert.Equal(t, "pandoc", c.Name())

		in, out := convertPaths(t)
		require.NoError(t, c.Convert(context.Background(), in, out))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 pandoc", string(data))
	})

	t.Run("passes the pdf engine", func(t *testing.T) {
		argsFile := filepath.Join(t.TempDir(), "args")
		script := `echo "$@" > ` + argsFile + "\n" + fakePandoc
		c, err := NewPandocConverter(&PandocConfig{
			BinaryPath: writeScript(t, "pandoc", script),
			PDFEngine:  "xelatex",
		})
		require.NoError(t, err)

		in, out := convertPaths(t)
		require.NoError(t, c.Convert(context.Background(), in, out))

		args, err := os.ReadFile(argsFile)
		require.NoError(t, err)
		assert.Contains(t, string(args), "--pdf-engine=xelatex")
	})

	t.Run("non-zero exit", func(t *testing.T) {
		c, err := NewPandocConverter(&PandocConfig{
			BinaryPath: writeScript(t, "pandoc", "echo 'pdflatex not found' >&2\nexit 43\n"),
		})
		require.NoError(t, err)

		in, out := convertPaths(t)
		err = c.Convert(context.Background(), in, out)
		requireRenderCode(t, err, ErrCodeRenderFailed)
		assert.Contains(t, err.Error(), "pdflatex not found")
	})

	t.Run("no output", func(t *testing.T) {
		c, err := NewPandocConverter(&PandocConfig{BinaryPath: writeScript(t, "pandoc", "exit 0\n")})
		require.NoError(t, err)

		in, out := convertPaths(t)
		requireRenderCode(t, c.Convert(context.Background(), in, out), ErrCodeRenderFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		c, err := NewPandocConverter(&PandocConfig{
			BinaryPath: writeScript(t, "pandoc", "exec sleep 5\n"),
			Timeout:    100 * time.Millisecond,
		})
		require.NoError(t, err)

		in, out := convertPaths(t)
		requireRenderCode(t, c.Convert(context.Background(), in, out), ErrCodeRenderTimeout)
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := NewPandocConverter(&PandocConfig{BinaryPath: filepath.Join(t.TempDir(), "pandoc")})
		requireRenderCode(t, err, ErrCodeBinaryNotFound)

		_, err = NewPandocConverter(&PandocConfig{BinaryPath: "definitely-not-a-real-pandoc"})
		requireRenderCode(t, err, ErrCodeBinaryNotFound)
	})
}

func TestSofficeConverter(t *testing.T) {
	t.Run("renames output to the requested path", func(t *testing.T) {
		c, err := NewSofficeConverter(&SofficeConfig{BinaryPath: writeScript(t, "soffice", fakeSoffice)})
		require.NoError(t, err)
		assert.Equal(t, "soffice", c.Name())

		in, _ := convertPaths(t)
		out := filepath.Join(filepath.Dir(in), "result.pdf")
		require.NoError(t, c.Convert(context.Background(), in, out))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 soffice", string(data))

		_, err = os.Stat(filepath.Join(filepath.Dir(in), "temp_INV2025001.pdf"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := NewSofficeConverter(&SofficeConfig{BinaryPath: "no-such-soffice"})
		requireRenderCode(t, err, ErrCodeBinaryNotFound)
	})
}

func TestDocxRenderer_WithPandocScript(t *testing.T) {
	c, err := NewPandocConverter(&PandocConfig{BinaryPath: writeScript(t, "pandoc", fakePandoc)})
	require.NoError(t, err)

	r, tempDir := newTestRenderer(t, nil, c)
	result, err := r.Render(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 pandoc", string(result.PDF))

	entries, _ := os.ReadDir(tempDir)
	assert.Empty(t, entries)
}

func TestRenderError(t *testing.T) {
	cause := os.ErrNotExist
	err := NewRenderError(ErrCodeBinaryNotFound, "pandoc binary not found: pandoc", cause)

	assert.Equal(t, "pandoc binary not found: pandoc: file does not exist", err.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "generated PDF is empty", NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil).Error())
}
