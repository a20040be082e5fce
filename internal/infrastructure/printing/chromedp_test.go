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

const fakePandocHTML = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
printf '<html><body>invoice</body></html>' > "$out"
`

func TestChromedpConverter(t *testing.T) {
	t.Run("missing pandoc", func(t *testing.T) {
		_, err := NewChromedpConverter(&ChromedpConfig{PandocPath: filepath.Join(t.TempDir(), "pandoc")})
		requireRenderCode(t, err, ErrCodeBinaryNotFound)
	})

	t.Run("pandoc failure stops before printing", func(t *testing.T) {
		c, err := NewChromedpConverter(&ChromedpConfig{
			PandocPath: writeScript(t, "pandoc", "echo 'unknown reader' >&2\nexit 1\n"),
			RemoteURL:  "ws://127.0.0.1:1/devtools/browser/none",
		})
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, "chromedp", c.Name())

		in, out := convertPaths(t)
		err = c.Convert(context.Background(), in, out)
		requireRenderCode(t, err, ErrCodeRenderFailed)
		assert.Contains(t, err.Error(), "unknown reader")
		assert.NoFileExists(t, out)
	})

	t.Run("unreachable browser", func(t *testing.T) {
		c, err := NewChromedpConverter(&ChromedpConfig{
			PandocPath: writeScript(t, "pandoc", fakePandocHTML),
			RemoteURL:  "ws://127.0.0.1:1/devtools/browser/none",
			Timeout:    5 * time.Second,
		})
		require.NoError(t, err)
		defer c.Close()

		in, out := convertPaths(t)
		err = c.Convert(context.Background(), in, out)
		require.Error(t, err)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)

		// the intermediate HTML is cleaned up either way
		_, statErr := os.Stat(filepath.Join(filepath.Dir(in), "temp_INV2025001.html"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c, err := NewChromedpConverter(&ChromedpConfig{
			PandocPath: writeScript(t, "pandoc", fakePandocHTML),
			RemoteURL:  "ws://127.0.0.1:1/devtools/browser/none",
		})
		require.NoError(t, err)
		assert.NoError(t, c.Close())
		assert.NoError(t, c.Close())
	})
}
