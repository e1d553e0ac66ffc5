package main

import (
	"fmt"

	"github.com/kbrowse/kbrowse/internal/csstok"
	"github.com/kbrowse/kbrowse/internal/handler"
)

func main() {
	src := []byte(`p { color: red; width: 10px; }`)
	h := handler.NewHandler(string(src), "<test>")
	tz := csstok.New(src, h)
	for i := 0; i < 50; i++ {
		tok := tz.Next()
		fmt.Printf("%d: %v %q\n", i, tok.Type, tok.Data)
		if tok.Type == csstok.EOFToken {
			break
		}
	}
}
