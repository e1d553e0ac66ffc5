package browser

import "context"

// The types below are the external-collaborator contracts: minimal
// shapes the core pipeline is written against, with no real network,
// URL, or terminal-I/O behavior supplied here. No implementation of
// them is wired in this repository (cmd/kbrowse renders a local file
// only); the core only ever depends on these interfaces.

// FetchResult is what an HTTPFetcher collaborator returns: the core
// consumes only the status code, the Content-Type header (to pick a
// text decoder), and the body bytes; redirect chains and TLS are
// entirely the collaborator's concern.
type FetchResult struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// HTTPFetcher is the document-fetch collaborator.
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string, userAgent string, timeout int, maxRedirects int) (FetchResult, error)
}

// Url is the URL-resolution collaborator's parsed-URL shape.
type Url struct {
	Scheme   string
	Host     string
	Port     string
	Path     string
	Query    string
	Fragment string
}

// URLResolver is the URL collaborator: parsing an absolute URL and
// resolving a relative reference against a base, per standard URL
// resolution (same-scheme relative, protocol-relative `//`, absolute
// path `/`, dot-segment normalization).
type URLResolver interface {
	Parse(s string) (Url, error)
	Resolve(relative string, base Url) (Url, error)
}

// KeyCode is the terminal collaborator's keystroke variant. Char
// carries the rune for KeyChar; Ctrl carries the letter for KeyCtrlKey.
type KeyCode struct {
	Kind byte // one of the Key* constants below
	Char rune
	Ctrl rune
	FKey int // 1-12, valid only when Kind == KeyF
}

const (
	KeyChar byte = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEscape
	KeySpace
	KeyDelete
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyF
	KeyCtrlKey
	KeyUnknown
)

// Terminal is the raw-terminal collaborator: a keystroke
// stream, the current viewport size, and a sink for ANSI byte streams.
type Terminal interface {
	ReadKey(ctx context.Context) (KeyCode, error)
	Size() (cols, rows int)
	Write(ansi []byte) error
}
