package cssparse

import (
	"testing"

	"github.com/kbrowse/kbrowse/internal/handler"
	"gotest.tools/v3/assert"
)

func parse(t *testing.T, input string) *Stylesheet {
	t.Helper()
	h := handler.NewHandler(input, "<test>")
	return Parse([]byte(input), h)
}

func TestBasicRuleParsing(t *testing.T) {
	sheet := parse(t, `p { color: red; width: 10px; }`)
	assert.Equal(t, len(sheet.Rules), 1)
	rule := sheet.Rules[0]
	assert.Equal(t, len(rule.Selectors), 1)
	assert.Equal(t, rule.Selectors[0].Parts[0].Simple.Tag, "p")
	assert.Equal(t, len(rule.Declarations), 2)
	assert.Equal(t, rule.Declarations[0].Property, "color")
	assert.Equal(t, rule.Declarations[0].Values[0].Kind, KeywordValue)
	assert.Equal(t, rule.Declarations[0].Values[0].Str, "red")
	assert.Equal(t, rule.Declarations[1].Values[0].Kind, LengthValue)
	assert.Equal(t, rule.Declarations[1].Values[0].Num, float64(10))
	assert.Equal(t, rule.Declarations[1].Values[0].Unit, "px")
}

func TestSelectorCombinators(t *testing.T) {
	sheet := parse(t, `div p { x: 1 } div > p { x: 1 } div + p { x: 1 } div ~ p { x: 1 }`)
	assert.Equal(t, len(sheet.Rules), 4)
	want := []Combinator{Descendant, Child, AdjacentSibling, GeneralSibling}
	for i, rule := range sheet.Rules {
		parts := rule.Selectors[0].Parts
		assert.Equal(t, len(parts), 2)
		assert.Equal(t, parts[0].Combinator, NoCombinator)
		assert.Equal(t, parts[1].Combinator, want[i])
		assert.Equal(t, parts[1].Simple.Tag, "p")
	}
}

func TestSpecificityOrdering(t *testing.T) {
	sheet := parse(t, `p {x:1} .foo {x:1} #bar {x:1} p.foo#bar {x:1}`)
	assert.Equal(t, len(sheet.Rules), 4)
	specs := make([]Specificity, len(sheet.Rules))
	for i, rule := range sheet.Rules {
		specs[i] = rule.Selectors[0].Specificity()
	}
	// p < .foo < #bar < p.foo#bar
	assert.Assert(t, specs[0].Less(specs[1]))
	assert.Assert(t, specs[1].Less(specs[2]))
	assert.Assert(t, specs[2].Less(specs[3]))
}

func TestAttributeSelectorKinds(t *testing.T) {
	tests := []struct {
		sel  string
		kind AttrMatchKind
	}{
		{`[href]`, AttrExists},
		{`[href="x"]`, AttrExact},
		{`[href^="x"]`, AttrPrefix},
		{`[href$="x"]`, AttrSuffix},
		{`[href*="x"]`, AttrContains},
		{`[href~="x"]`, AttrWord},
		{`[href|="x"]`, AttrHyphen},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			sheet := parse(t, tt.sel+` { x: 1 }`)
			assert.Equal(t, len(sheet.Rules), 1)
			attrs := sheet.Rules[0].Selectors[0].Parts[0].Simple.Attrs
			assert.Equal(t, len(attrs), 1)
			assert.Equal(t, attrs[0].Name, "href")
			assert.Equal(t, attrs[0].Kind, tt.kind)
		})
	}
}

func TestImportantDetection(t *testing.T) {
	sheet := parse(t, `p { color: red !important; width: 1px; }`)
	decls := sheet.Rules[0].Declarations
	assert.Equal(t, decls[0].Important, true)
	assert.Equal(t, decls[1].Important, false)
}

func TestValueGrammarComponents(t *testing.T) {
	sheet := parse(t, `p {
		a: keyword;
		b: #ff0000;
		c: "a string";
		d: 42;
		e: 50%;
		f: 2em;
		g: unknownfunc(1, 2);
	}`)
	decls := sheet.Rules[0].Declarations
	assert.Equal(t, decls[0].Values[0].Kind, KeywordValue)
	assert.Equal(t, decls[1].Values[0].Kind, ColorValue)
	assert.Equal(t, decls[1].Values[0].Str, "ff0000")
	assert.Equal(t, decls[2].Values[0].Kind, StringValue)
	assert.Equal(t, decls[2].Values[0].Str, "a string")
	assert.Equal(t, decls[3].Values[0].Kind, NumberValue)
	assert.Equal(t, decls[3].Values[0].Num, float64(42))
	assert.Equal(t, decls[4].Values[0].Kind, PercentageValue)
	assert.Equal(t, decls[5].Values[0].Kind, LengthValue)
	assert.Equal(t, decls[5].Values[0].Unit, "em")
	assert.Equal(t, decls[6].Values[0].Kind, KeywordValue)
	assert.Equal(t, decls[6].Values[0].Str, "unknownfunc(...)")
}

func TestVarFunctionWithFallback(t *testing.T) {
	sheet := parse(t, `p { color: var(--main-color, blue); width: var(--w); }`)
	decls := sheet.Rules[0].Declarations
	assert.Equal(t, decls[0].Values[0].Kind, VarValue)
	assert.Equal(t, decls[0].Values[0].VarName, "--main-color")
	assert.Equal(t, len(decls[0].Values[0].VarFallback), 1)
	assert.Equal(t, decls[0].Values[0].VarFallback[0].Str, "blue")

	assert.Equal(t, decls[1].Values[0].Kind, VarValue)
	assert.Equal(t, decls[1].Values[0].VarName, "--w")
	assert.Equal(t, len(decls[1].Values[0].VarFallback), 0)
}

func TestAtRuleParsedButNotEvaluated(t *testing.T) {
	sheet := parse(t, `@media screen { p { color: red; } } @import url(x.css);`)
	assert.Equal(t, len(sheet.Rules), 2)
	assert.Equal(t, sheet.Rules[0].AtRule, "media")
	assert.Equal(t, sheet.Rules[0].Selectors[0].Parts[0].Simple.Tag, "p")
	assert.Equal(t, sheet.Rules[1].AtRule, "import")
}

func TestParseErrorRecoverySkipsToDeclarationEnd(t *testing.T) {
	sheet := parse(t, `p { color ;;; red: ; width: 10px; } div { color: blue; }`)
	assert.Equal(t, len(sheet.Rules), 2)
	// the malformed "color ;" and "red:" declarations are dropped, but
	// width: 10px still parses, and the second rule is unaffected.
	found := false
	for _, d := range sheet.Rules[0].Declarations {
		if d.Property == "width" {
			found = true
		}
	}
	assert.Assert(t, found)
	assert.Equal(t, sheet.Rules[1].Declarations[0].Property, "color")
}

func TestMalformedInputNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"{",
		"}",
		"p {",
		"p { color",
		"[",
		"[[[",
		"@media",
		"p { color: var(",
		"*** { x: 1 }",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Parse(%q) panicked: %v", in, r)
				}
			}()
			parse(t, in)
		}()
	}
}

func TestRunawayParserTerminates(t *testing.T) {
	h := handler.NewHandler("p { x: 1 }", "<test>")
	sheet := Parse([]byte("a,a,a,a,a,a,a,a,a,a { x: 1 }"), h)
	assert.Assert(t, sheet != nil)
}
