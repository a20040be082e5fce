package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageFetcher_Fetch(t *testing.T) {
	pic := pngBytes(t)

	t.Run("direct image", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pic)
		}))
		defer server.Close()

		data, err := NewImageFetcher(server.Client()).Fetch(context.Background(), server.URL+"/stamp.png")
		require.NoError(t, err)
		assert.Equal(t, pic, data)
		assert.Equal(t, DefaultUserAgent, gotUA)
	})

	t.Run("follows redirects", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pic)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		data, err := NewImageFetcher(server.Client()).Fetch(context.Background(), server.URL+"/start")
		require.NoError(t, err)
		assert.Equal(t, pic, data)
	})

	t.Run("drive confirmation round-trip keeps cookies", func(t *testing.T) {
		var confirmed, cookieSeen bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("confirm") == "t0k-en_1" {
				confirmed = true
				_, err := r.Cookie("download_warning")
				cookieSeen = err == nil
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(pic)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "download_warning", Value: "1", Path: "/"})
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html>Google Drive can't scan this file. <a href="https://drive.google.com/uc?export=download&amp;confirm=t0k-en_1&amp;id=x">Download anyway</a></html>`))
		}))
		defer server.Close()

		data, err := NewImageFetcher(server.Client()).Fetch(context.Background(), server.URL+"/uc?export=download&id=x")
		require.NoError(t, err)
		assert.Equal(t, pic, data)
		assert.True(t, confirmed)
		assert.True(t, cookieSeen)
	})

	t.Run("custom user agent", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pic)
		}))
		defer server.Close()

		_, err := NewImageFetcher(server.Client(), WithUserAgent("invoicegen/1.0")).Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "invoicegen/1.0", gotUA)
	})
}

func TestImageFetcher_Errors(t *testing.T) {
	longPage := "<html>" + strings.Repeat("x", 500) + "</html>"

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		target   error
		contains []string
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			target:   ErrUnexpectedStatus,
			contains: []string{"Status code: 403"},
		},
		{
			name: "html without confirmation",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(longPage))
			},
			target:   ErrNotImage,
			contains: []string{"did not return an image", "Content-Type: text/html", "Response preview: <html>xxx"},
		},
		{
			name: "confirmation page without token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(`google.com says confirm= but nothing follows`))
			},
			target:   ErrNotImage,
			contains: []string{"no confirmation token found"},
		},
		{
			name: "still not an image after confirmation",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(`google.com confirm=abc`))
			},
			target:   ErrNotImage,
			contains: []string{"still did not return an image after confirmation"},
		},
		{
			name: "image content type with non-image body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write([]byte("plain text pretending"))
			},
			target:   ErrNotImage,
			contains: []string{"detected text/plain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			url := server.URL + "/uc?id=1"
			_, err := NewImageFetcher(server.Client()).Fetch(context.Background(), url)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, strings.HasPrefix(err.Error(), "error fetching image from "+url+": "))
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestImageFetcher_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewImageFetcher(server.Client()).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error fetching image from "+url)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview([]byte("short")))
	assert.Len(t, []rune(preview([]byte(strings.Repeat("é", 300)))), previewLength)
}
