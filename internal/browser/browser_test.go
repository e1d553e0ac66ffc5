package browser

import (
	"context"
	stdimage "image"
	"testing"

	kbimage "github.com/kbrowse/kbrowse/internal/image"
	"github.com/kbrowse/kbrowse/internal/render"
	"gotest.tools/v3/assert"
)

func TestLoadBuildsDocumentStylesAndLayout(t *testing.T) {
	b := New()
	b.Load([]byte(`<html><body><style>p{color:red}</style><p>hi</p></body></html>`), 40)

	assert.Assert(t, b.Document != nil)
	assert.Assert(t, b.Styles != nil)
	assert.Assert(t, b.Root != nil)
}

func TestLoadRunsScriptAndMutatesDOM(t *testing.T) {
	b := New()
	b.Load([]byte(`<body><div id="x"></div><script>
		document.getElementById("x").textContent = "set-by-js";
	</script></body>`), 40)

	el := b.Document.GetElementByID("x")
	assert.Assert(t, el != nil)
	assert.Equal(t, el.TextContent(), "set-by-js")
}

func TestRelayoutAtNewWidthRewrapsText(t *testing.T) {
	b := New()
	b.Load([]byte(`<div>one two three four five</div>`), 80)
	wide := b.Root

	b.Relayout(10)
	narrow := b.Root

	assert.Assert(t, wide != narrow)
	assert.Assert(t, narrow != nil)
}

func TestLoadResetsFocusScrollAndImageCache(t *testing.T) {
	b := New()
	b.Load([]byte(`<img src="a.png">`), 40)
	b.Images.Set("a.png", stdimage.NewRGBA(stdimage.Rect(0, 0, 1, 1)))
	b.Focus = b.Document.Root
	b.ScrollY = 5

	b.Load([]byte(`<div>new doc</div>`), 40)
	assert.Equal(t, b.Images.Count(), 0)
	assert.Assert(t, b.Focus == nil)
	assert.Equal(t, b.ScrollY, 0)
}

type stubFetcher struct {
	img stdimage.Image
}

func (s stubFetcher) FetchImage(ctx context.Context, url string) (stdimage.Image, error) {
	return s.img, nil
}

func TestLoadImagesPopulatesCacheAndRelayouts(t *testing.T) {
	b := New()
	b.Load([]byte(`<img src="a.png">`), 40)

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 4))
	b.LoadImages(context.Background(), stubFetcher{img: img})

	assert.Assert(t, b.Images.Contains("a.png"))
}

func TestRenderProducesCanvasOfRequestedSize(t *testing.T) {
	b := New()
	b.Width, b.Height = 30, 10
	b.Load([]byte(`<div>hello</div>`), 30)

	canvas := b.Render(render.Options{ColorSupport: kbimage.ColorNone})
	assert.Equal(t, canvas.Width, 30)
	assert.Equal(t, canvas.Height, 10)
}

func TestImageCacheConcurrentAccess(t *testing.T) {
	c := NewImageCache()
	done := make(chan bool)
	for i := 0; i < 4; i++ {
		go func(n int) {
			c.Set("u", stdimage.NewRGBA(stdimage.Rect(0, 0, 1, 1)))
			c.Get("u")
			c.Contains("u")
			done <- true
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	assert.Equal(t, c.Count(), 1)
}
