package jsengine

import (
	"testing"

	"gotest.tools/v3/assert"
)

func runProgram(t *testing.T, src string) *recordingSink {
	t.Helper()
	interp := NewInterpreter()
	sink := &recordingSink{}
	interp.Console = sink
	program, err := Parse(src)
	assert.NilError(t, err)
	assert.NilError(t, interp.Run(program))
	return sink
}

func TestArithmeticAndStringConcat(t *testing.T) {
	sink := runProgram(t, `
		console.log(1 + 2 * 3);
		console.log("a" + "b" + 1);
	`)
	assert.Equal(t, sink.msgs[0], "7")
	assert.Equal(t, sink.msgs[1], "ab1")
}

func TestVarHoistingAndFunctionDeclarations(t *testing.T) {
	sink := runProgram(t, `
		console.log(greet());
		function greet() { return "hi " + name; }
		var name = "world";
	`)
	// hoisting means greet is callable before its declaration point, but
	// var name isn't assigned until its statement runs, so the first
	// call sees it as undefined.
	assert.Equal(t, sink.msgs[0], "hi undefined")
}

func TestClosureCapturesOuterScope(t *testing.T) {
	sink := runProgram(t, `
		function makeCounter() {
			var count = 0;
			return function() {
				count = count + 1;
				return count;
			};
		}
		var counter = makeCounter();
		console.log(counter());
		console.log(counter());
		console.log(counter());
	`)
	assert.Equal(t, sink.msgs[0], "1")
	assert.Equal(t, sink.msgs[1], "2")
	assert.Equal(t, sink.msgs[2], "3")
}

func TestForLoopAccumulation(t *testing.T) {
	sink := runProgram(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		console.log(sum);
	`)
	assert.Equal(t, sink.msgs[0], "10")
}

func TestArrayLiteralAndMethodChaining(t *testing.T) {
	sink := runProgram(t, `
		var arr = [3, 1, 2];
		console.log(arr.length);
		console.log(arr.join(","));
	`)
	assert.Equal(t, sink.msgs[0], "3")
	assert.Equal(t, sink.msgs[1], "3,1,2")
}

func TestObjectLiteralMemberAccessAndAssignment(t *testing.T) {
	sink := runProgram(t, `
		var obj = { a: 1, b: 2 };
		obj.c = obj.a + obj.b;
		console.log(obj.c);
	`)
	assert.Equal(t, sink.msgs[0], "3")
}

func TestArrowFunctionExpressionBody(t *testing.T) {
	sink := runProgram(t, `
		var double = x => x * 2;
		console.log(double(21));
	`)
	assert.Equal(t, sink.msgs[0], "42")
}

func TestTernaryAndLogicalOperators(t *testing.T) {
	sink := runProgram(t, `
		console.log(true && false ? "a" : "b");
		console.log(0 || "fallback");
	`)
	assert.Equal(t, sink.msgs[0], "b")
	assert.Equal(t, sink.msgs[1], "fallback")
}

func TestJSONParseAndStringifyRoundTrip(t *testing.T) {
	sink := runProgram(t, `
		var parsed = JSON.parse('{"x": 1, "y": [1,2,3]}');
		console.log(parsed.x);
		console.log(JSON.stringify(parsed.y));
	`)
	assert.Equal(t, sink.msgs[0], "1")
	assert.Equal(t, sink.msgs[1], "[1,2,3]")
}

func TestThrowingInvalidSyntaxReturnsParseError(t *testing.T) {
	_, err := Parse(`var = ;`)
	assert.Assert(t, err != nil)
}

func TestRunRecoversInternalPanicAsError(t *testing.T) {
	// Detaching push from its receiver and calling it free leaves the
	// native with a non-array `this`; the resulting panic must come
	// back as an error, not crash the process.
	interp := NewInterpreter()
	program, err := Parse(`
		var f = [1].push;
		f(2);
	`)
	assert.NilError(t, err)
	err = interp.Run(program)
	assert.Assert(t, err != nil)
}

func TestMaxCallDepthRaisesRangeError(t *testing.T) {
	interp := NewInterpreter()
	interp.MaxCallDepth = 10
	program, err := Parse(`
		function recurse(n) { return recurse(n + 1); }
		recurse(0);
	`)
	assert.NilError(t, err)
	err = interp.Run(program)
	assert.Assert(t, err != nil)
	assert.ErrorContains(t, err, "RangeError")
}
