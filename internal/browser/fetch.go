package browser

import (
	"context"
	stdimage "image"
	"sync"

	"github.com/kbrowse/kbrowse/internal/dom"
)

// ImageFetcher is the external collaborator for images: it resolves
// an already-URL-resolved image source to decoded RGBA pixels. PNG/JPEG
// container decoding happens inside the collaborator; this engine only
// consumes the resulting image.Image.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (stdimage.Image, error)
}

// imageURLs collects every distinct <img src> under root, in document
// order. Fetch tasks are issued in that order even though completions
// may race.
func imageURLs(root *dom.Node) []string {
	seen := map[string]bool{}
	var out []string
	dom.Walk(root, func(n *dom.Node) {
		if n.Type != dom.ElementNode || n.Data != "img" {
			return
		}
		src, ok := n.GetAttribute("src")
		if !ok || src == "" || seen[src] {
			return
		}
		seen[src] = true
		out = append(out, src)
	})
	return out
}

// defaultImageConcurrency bounds simultaneous in-flight image
// fetches.
const defaultImageConcurrency = 8

// LoadImages issues one fetch task per distinct image URL under root,
// bounded to defaultImageConcurrency in flight at once, and publishes
// each decoded result into the cache as it completes. generation is
// compared against b.generation after each fetch so a completion that
// outlives a new navigation is dropped rather than corrupting the new
// document's cache.
func (b *Browser) LoadImages(ctx context.Context, fetcher ImageFetcher) {
	if fetcher == nil || b.Document == nil {
		return
	}
	urls := imageURLs(b.Document.Root)
	if len(urls) == 0 {
		return
	}
	gen := b.generation

	sem := make(chan struct{}, defaultImageConcurrency)
	var wg sync.WaitGroup
	for _, url := range urls {
		if b.Images.Contains(url) {
			continue
		}
		url := url
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			img, err := fetcher.FetchImage(ctx, url)
			if err != nil || b.generation != gen {
				return // resource error, or a newer navigation superseded this load
			}
			b.Images.Set(url, img)
		}()
	}
	wg.Wait()

	// One re-layout after every in-flight fetch from this call has
	// settled, not one per individual completion.
	if b.generation == gen {
		b.Relayout(b.Width)
	}
}
