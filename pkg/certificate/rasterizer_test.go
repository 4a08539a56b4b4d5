package certificate

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chromeOrSkip(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("chrome not installed")
	return ""
}

func TestRasterizeCapturesCertificate(t *testing.T) {
	r := NewRasterizer(RasterizerOptions{ChromePath: chromeOrSkip(t)})
	defer r.Close()

	renderer, err := NewRenderer(Layout{Institution: "CEP Cursos de Equipos Pesados"})
	require.NoError(t, err)
	html, err := renderer.Render(Data{StudentName: "Ana", DNI: "12345678", CourseName: "Grúa"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	png, err := r.Rasterize(ctx, html)
	require.NoError(t, err)

	_, size, err := NormalizeJPEG(png)
	require.NoError(t, err)
	assert.Equal(t, Width*CaptureScale, size.X)
	assert.Equal(t, Height*CaptureScale, size.Y)
}

func TestRasterizeReusesBrowser(t *testing.T) {
	r := NewRasterizer(RasterizerOptions{ChromePath: chromeOrSkip(t)})
	defer r.Close()

	html := []byte(`<html><body><div id="certificate" style="width:100px;height:50px"></div></body></html>`)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := r.Rasterize(ctx, html)
	require.NoError(t, err)
	first := chromedp.FromContext(r.browserCtx).Browser
	require.NotNil(t, first)

	_, err = r.Rasterize(ctx, html)
	require.NoError(t, err)
	assert.Same(t, first, chromedp.FromContext(r.browserCtx).Browser)
}

func TestRasterizeAfterClose(t *testing.T) {
	r := NewRasterizer(RasterizerOptions{})
	r.Close()

	_, err := r.Rasterize(context.Background(), []byte("<html></html>"))
	assert.ErrorContains(t, err, "rasterizer closed")
	assert.Nil(t, r.browserCtx)
}

func TestRasterizeHonoursExpiredContext(t *testing.T) {
	r := NewRasterizer(RasterizerOptions{})
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Rasterize(ctx, []byte("<html></html>"))
	assert.ErrorIs(t, err, context.Canceled)
}
