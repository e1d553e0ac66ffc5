package jsengine

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/dom"
	"github.com/kbrowse/kbrowse/internal/handler"
	"gotest.tools/v3/assert"
)

type recordingSink struct {
	msgs []string
}

func (r *recordingSink) Log(level string, args []interface{}) {
	for _, a := range args {
		r.msgs = append(r.msgs, toStr(a))
	}
}

func runOnDoc(t *testing.T, html, src string) (*Interpreter, *dom.Document, *recordingSink) {
	t.Helper()
	h := handler.NewHandler(html, "<test>")
	doc := dom.Parse([]byte(html), h)
	interp := NewInterpreter()
	sink := &recordingSink{}
	interp.Console = sink
	BindDocument(interp, doc, h)
	program, err := Parse(src)
	assert.NilError(t, err)
	assert.NilError(t, interp.Run(program))
	return interp, doc, sink
}

func TestGetElementByIdTextContent(t *testing.T) {
	_, _, sink := runOnDoc(t, `<div id="x">hello</div>`, `
		var el = document.getElementById("x");
		console.log(el.textContent);
	`)
	assert.Equal(t, len(sink.msgs), 1)
	assert.Equal(t, sink.msgs[0], "hello")
}

func TestSetTextContentMutatesDOM(t *testing.T) {
	_, doc, _ := runOnDoc(t, `<div id="x">hello</div>`, `
		var el = document.getElementById("x");
		el.textContent = "bye";
	`)
	el := doc.GetElementByID("x")
	assert.Equal(t, el.TextContent(), "bye")
}

func TestClassListAddToggleContains(t *testing.T) {
	_, doc, sink := runOnDoc(t, `<div id="x" class="a"></div>`, `
		var el = document.getElementById("x");
		el.classList.add("b");
		el.classList.toggle("a");
		console.log(el.className);
		console.log(el.classList.contains("b"));
	`)
	el := doc.GetElementByID("x")
	assert.Assert(t, el.HasClass("b"))
	assert.Assert(t, !el.HasClass("a"))
	assert.Equal(t, sink.msgs[1], "true")
}

func TestStylePropertySetReflectsInInlineAttribute(t *testing.T) {
	_, doc, _ := runOnDoc(t, `<div id="x"></div>`, `
		var el = document.getElementById("x");
		el.style.color = "red";
		el.style.setProperty("background-color", "blue");
	`)
	el := doc.GetElementByID("x")
	style, _ := el.GetAttribute("style")
	assert.Assert(t, style != "")
	colorVal, _ := lookupInlineDecl(el, "color")
	assert.Equal(t, colorVal, "red")
	bgVal, _ := lookupInlineDecl(el, "background-color")
	assert.Equal(t, bgVal, "blue")
}

func TestSetAttributeGetAttribute(t *testing.T) {
	_, doc, sink := runOnDoc(t, `<a id="x"></a>`, `
		var el = document.getElementById("x");
		el.setAttribute("href", "/page");
		console.log(el.getAttribute("href"));
		console.log(el.hasAttribute("missing"));
	`)
	el := doc.GetElementByID("x")
	href, _ := el.GetAttribute("href")
	assert.Equal(t, href, "/page")
	assert.Equal(t, sink.msgs[0], "/page")
	assert.Equal(t, sink.msgs[1], "false")
}

func TestQuerySelectorFromDocument(t *testing.T) {
	_, _, sink := runOnDoc(t, `<div><p class="target">hit</p></div>`, `
		var el = document.querySelector(".target");
		console.log(el.tagName);
	`)
	assert.Equal(t, sink.msgs[0], "P")
}

func TestAddEventListenerDispatchesOnClick(t *testing.T) {
	_, _, sink := runOnDoc(t, `<button id="b">go</button>`, `
		var el = document.getElementById("b");
		el.addEventListener("click", function(e) {
			console.log("clicked:" + e.type);
		});
		el.click();
	`)
	assert.Equal(t, len(sink.msgs), 1)
	assert.Equal(t, sink.msgs[0], "clicked:click")
}

func TestAppendChildMovesAttachedNode(t *testing.T) {
	_, doc, _ := runOnDoc(t, `<ul id="list"><li id="a">a</li><li id="b">b</li></ul>`, `
		var list = document.getElementById("list");
		var a = document.getElementById("a");
		list.appendChild(a);
	`)
	list := doc.GetElementByID("list")
	items := list.Children()
	assert.Equal(t, len(items), 2)
	assert.Equal(t, items[0].ID(), "b")
	assert.Equal(t, items[1].ID(), "a")
}

func TestInsertBeforeReordersAttachedNode(t *testing.T) {
	_, doc, _ := runOnDoc(t, `<ul id="list"><li id="a">a</li><li id="b">b</li></ul>`, `
		var list = document.getElementById("list");
		var a = document.getElementById("a");
		var b = document.getElementById("b");
		list.insertBefore(b, a);
	`)
	list := doc.GetElementByID("list")
	items := list.Children()
	assert.Equal(t, len(items), 2)
	assert.Equal(t, items[0].ID(), "b")
	assert.Equal(t, items[1].ID(), "a")
}

func TestRemoveChildOfOtherParentIsNoOp(t *testing.T) {
	_, doc, _ := runOnDoc(t, `<div id="x"><span id="s">s</span></div><div id="y"></div>`, `
		var x = document.getElementById("x");
		var y = document.getElementById("y");
		var s = document.getElementById("s");
		y.removeChild(s);
	`)
	x := doc.GetElementByID("x")
	assert.Equal(t, len(x.Children()), 1)
	assert.Equal(t, x.Children()[0].ID(), "s")
}

func TestCreateElementAppendChild(t *testing.T) {
	_, doc, _ := runOnDoc(t, `<div id="x"></div>`, `
		var el = document.getElementById("x");
		var child = document.createElement("span");
		child.textContent = "new";
		el.appendChild(child);
	`)
	el := doc.GetElementByID("x")
	assert.Equal(t, len(el.Children()), 1)
	assert.Equal(t, el.Children()[0].Data, "span")
	assert.Equal(t, el.Children()[0].TextContent(), "new")
}
