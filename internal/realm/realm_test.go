package realm

import (
	"strings"
	"testing"

	"github.com/BasixKOR/boa/internal/config"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/logger"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/test"
	"github.com/BasixKOR/boa/internal/vm"
)

func newTestRealm(t *testing.T) *Realm {
	t.Helper()
	return New(config.Default(), logger.NewDeferLog())
}

// evalToString evaluates src and renders the completion value with the
// engine's own ToString, so tests compare observable surfaces rather than
// Go internals.
func evalToString(t *testing.T, r *Realm, src string) string {
	t.Helper()
	v, err := r.Eval(src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	s, serr := r.VM.ToString(v)
	if serr != nil {
		t.Fatalf("stringifying result of %q: %v", src, serr)
	}
	return s.GoString()
}

func expectEval(t *testing.T, src, expected string) {
	t.Helper()
	r := newTestRealm(t)
	test.AssertEqualWithDiff(t, evalToString(t, r, src), expected)
}

// expectThrown evaluates src and asserts it throws an error whose rendered
// form contains wantSubstring.
func expectThrown(t *testing.T, src, wantSubstring string) {
	t.Helper()
	r := newTestRealm(t)
	_, err := r.Eval(src)
	if err == nil {
		t.Fatalf("eval %q: expected an error", src)
	}
	rendered := renderError(t, r, err)
	if !strings.Contains(rendered, wantSubstring) {
		t.Fatalf("eval %q: error %q does not mention %q", src, rendered, wantSubstring)
	}
}

// renderError renders a thrown value the way Error.prototype.toString
// would, so assertions match the script-visible message.
func renderError(t *testing.T, r *Realm, err error) string {
	t.Helper()
	if thrown, ok := err.(*vm.Thrown); ok {
		s, serr := r.VM.ToString(thrown.Value)
		if serr == nil {
			return s.GoString()
		}
	}
	return err.Error()
}

// ---- spec.md §8 end-to-end scenarios ----

func TestClosureOverLoopVariable(t *testing.T) {
	expectEval(t,
		`let a=[]; for(let i=0;i<3;i++)a.push(()=>i); JSON.stringify(a.map(f=>f()))`,
		`[0,1,2]`)
}

func TestTryFinallyCompletionDominance(t *testing.T) {
	expectEval(t, `(function(){try{return 1}finally{return 2}})()`, `2`)
}

func TestGeneratorProtocol(t *testing.T) {
	expectEval(t,
		`function* g(){yield 1;yield 2;return 3}
		 let it=g();
		 JSON.stringify([it.next(),it.next(),it.next(),it.next()])`,
		`[{"value":1,"done":false},{"value":2,"done":false},{"value":3,"done":true},{"done":true}]`)
}

func TestAsyncAwaitOrdering(t *testing.T) {
	r := newTestRealm(t)
	if _, err := r.Eval(`
		globalThis.log = [];
		async function f(){ log.push('a'); await 0; log.push('c') }
		f();
		log.push('b');
	`); err != nil {
		t.Fatal(err)
	}
	r.RunJobs()
	test.AssertEqual(t, evalToString(t, r, `log.join(',')`), "a,b,c")
}

func TestProxyInvariantEnforcement(t *testing.T) {
	expectThrown(t,
		`let tgt=Object.freeze({x:1}); let p=new Proxy(tgt,{get(){return 2}}); p.x`,
		"invariant")
}

func TestArrayLengthExoticTruncation(t *testing.T) {
	// The non-configurable index stops the truncation; length lands one past
	// it and the assignment itself throws in strict mode.
	r := newTestRealm(t)
	if _, err := r.Eval(`
		globalThis.a = [1,2,3,4,5];
		Object.defineProperty(a, '2', {configurable: false, value: 30});
	`); err != nil {
		t.Fatal(err)
	}
	_, err := r.Eval(`"use strict"; a.length = 2;`)
	if err == nil {
		t.Fatalf("expected the truncating length assignment to throw")
	}
	test.AssertEqual(t, evalToString(t, r, `JSON.stringify([a.length, a[2]])`), `[3,30]`)
}

// ---- spec.md §8 invariants ----

func TestGetAfterSetRoundTrip(t *testing.T) {
	expectEval(t, `let o={}; o.k='v'; o.k`, `v`)
}

func TestOwnKeysInsertionOrder(t *testing.T) {
	expectEval(t,
		`let o={}; o.b=1; o.a=2; o[1]=3; o[0]=4; JSON.stringify(Object.keys(o))`,
		`["0","1","b","a"]`)
}

func TestJSONRoundTrip(t *testing.T) {
	expectEval(t,
		`let x={a:[1,2.5,"s",true,null],b:{c:"d"}};
		 JSON.stringify(JSON.parse(JSON.stringify(x)))`,
		`{"a":[1,2.5,"s",true,null],"b":{"c":"d"}}`)
}

func TestNumberStringRoundTrip(t *testing.T) {
	expectEval(t,
		`JSON.stringify([0.1, 1e21, 1e-7, 123456789, -0.5].map(n => Number(String(n)) === n))`,
		`[true,true,true,true,true]`)
}

func TestAwaitFulfillmentAndRejection(t *testing.T) {
	r := newTestRealm(t)
	if _, err := r.Eval(`
		globalThis.out = [];
		async function f(){
			out.push(await Promise.resolve(7));
			try { await Promise.reject(new Error('boom')) }
			catch (e) { out.push(e.message) }
		}
		f();
	`); err != nil {
		t.Fatal(err)
	}
	r.RunJobs()
	test.AssertEqual(t, evalToString(t, r, `out.join('|')`), "7|boom")
}

func TestWeakRefStableWithinTurn(t *testing.T) {
	r := newTestRealm(t)
	if _, err := r.Eval(`
		globalThis.ref = new WeakRef({alive: true});
		globalThis.first = ref.deref() !== undefined;
		globalThis.second = ref.deref() !== undefined;
	`); err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, evalToString(t, r, `JSON.stringify([first, second])`), `[true,true]`)
	// Next turn: the keep-alive list has been cleared and nothing else
	// references the target, so a collection reclaims it.
	r.Heap.Collect()
	test.AssertEqual(t, evalToString(t, r, `String(ref.deref())`), "undefined")
}

func TestSortStability(t *testing.T) {
	expectEval(t,
		`let xs=[[1,'b'],[1,'a'],[0,'c'],[1,'d']];
		 xs.sort((x,y)=>x[0]-y[0]);
		 JSON.stringify(xs.map(p=>p[1]))`,
		`["c","b","a","d"]`)
}

// ---- language semantics beyond the scenario list ----

func TestSwitchFallthrough(t *testing.T) {
	expectEval(t,
		`let out=[];
		 switch(2){case 1: out.push(1); case 2: out.push(2); case 3: out.push(3); break; default: out.push('d')}
		 out.join(',')`,
		"2,3")
}

func TestLabelledBreakThroughFinally(t *testing.T) {
	expectEval(t,
		`let out=[];
		 outer: for(let i=0;i<3;i++){
		   try { if(i===1) break outer; out.push(i); }
		   finally { out.push('f'+i); }
		 }
		 out.join(',')`,
		"0,f0,f1")
}

func TestCatchBindingAndRethrow(t *testing.T) {
	expectEval(t,
		`let out=[];
		 try {
		   try { throw 'inner' } finally { out.push('fin') }
		 } catch (e) { out.push(e) }
		 out.join(',')`,
		"fin,inner")
}

func TestDestructuringWithDefaultsAndRest(t *testing.T) {
	expectEval(t,
		`let [a, b = 10, ...rest] = [1, undefined, 3, 4];
		 let {x, y: z = 5, ...others} = {x: 'X', w: 1, v: 2};
		 JSON.stringify([a, b, rest, x, z, Object.keys(others).length])`,
		`[1,10,[3,4],"X",5,2]`)
}

func TestSpreadCallAndArray(t *testing.T) {
	expectEval(t,
		`function add(a,b,c){return a+b+c}
		 let args=[1,2,3];
		 JSON.stringify([add(...args), [0, ...args, 4]])`,
		`[6,[0,1,2,3,4]]`)
}

func TestClassFieldsMethodsAndPrivate(t *testing.T) {
	expectEval(t,
		`class Counter {
		   #count = 0;
		   static created = 0;
		   constructor(){ Counter.created++ }
		   increment(){ return ++this.#count }
		   get value(){ return this.#count }
		   static is(x){ return #count in x }
		 }
		 let c = new Counter();
		 c.increment(); c.increment();
		 JSON.stringify([c.value, Counter.created, Counter.is(c), Counter.is({})])`,
		`[2,1,true,false]`)
}

func TestClassInheritanceAndSuper(t *testing.T) {
	expectEval(t,
		`class Animal {
		   constructor(name){ this.name = name }
		   speak(){ return this.name + ' makes a sound' }
		 }
		 class Dog extends Animal {
		   constructor(name){ super(name) }
		   speak(){ return super.speak() + ': woof' }
		 }
		 new Dog('rex').speak()`,
		"rex makes a sound: woof")
}

func TestThisBeforeSuperThrows(t *testing.T) {
	expectThrown(t,
		`class A {} class B extends A { constructor(){ this.x = 1; super() } } new B()`,
		"super")
}

func TestOptionalChainingAndNullish(t *testing.T) {
	expectEval(t,
		`let o = {a: {b: 1}};
		 JSON.stringify([o.a?.b, o.missing?.b, o.missing?.b ?? 'fallback', null ?? 'n'])`,
		`[1,null,"fallback","n"]`)
}

func TestForInEnumeratesInheritedEnumerable(t *testing.T) {
	expectEval(t,
		`let proto = {inherited: 1};
		 let o = Object.create(proto);
		 o.own = 2;
		 let seen = [];
		 for (let k in o) seen.push(k);
		 seen.join(',')`,
		"own,inherited")
}

func TestGeneratorDelegation(t *testing.T) {
	expectEval(t,
		`function* inner(){ yield 1; yield 2 }
		 function* outer(){ yield 0; yield* inner(); yield 3 }
		 JSON.stringify([...outer()])`,
		`[0,1,2,3]`)
}

func TestTemplateLiterals(t *testing.T) {
	expectEval(t, "let n = 6*7; `answer: ${n}!`", "answer: 42!")
}

func TestTaggedTemplate(t *testing.T) {
	expectEval(t,
		"function tag(parts, a, b){ return parts.join('_') + ':' + (a+b) }\n"+
			"tag`x${1}y${2}z`",
		"x_y_z:3")
}

func TestStrictEqualitySemantics(t *testing.T) {
	expectEval(t,
		`JSON.stringify([NaN === NaN, 0 === -0, 1 === 1.0, '1' == 1, null == undefined, null === undefined])`,
		`[false,true,true,true,true,false]`)
}

func TestBigIntArithmetic(t *testing.T) {
	expectEval(t,
		`String((2n ** 64n) + 1n)`,
		"18446744073709551617")
	expectThrown(t, `1n + 1`, "mix")
	expectThrown(t, `2n ** 10000000000n`, "RangeError")
}

func TestRegExpLastIndexClamp(t *testing.T) {
	expectEval(t,
		`let re = /a/g;
		 let s = 'aa';
		 let hits = [];
		 let m;
		 while ((m = re.exec(s)) !== null) hits.push(m.index);
		 JSON.stringify([hits, re.lastIndex])`,
		`[[0,1],0]`)
}

func TestRegExpNamedGroupsAndIndices(t *testing.T) {
	expectEval(t,
		`let m = /(?<year>\d{4})-(?<month>\d{2})/d.exec('2026-08');
		 JSON.stringify([m.groups.year, m.groups.month, m.indices[1]])`,
		`["2026","08",[0,4]]`)
}

func TestNumberFormattingSurfaces(t *testing.T) {
	expectEval(t,
		`JSON.stringify([(255).toString(16), (0.5).toString(2), (1234.5678).toFixed(2), (12345).toExponential(2), (0.000001234).toPrecision(2)])`,
		`["ff","0.1","1234.57","1.23e+4","0.0000012"]`)
}

func TestMapSetSemantics(t *testing.T) {
	expectEval(t,
		`let m = new Map([[NaN, 'nan'], [0, 'zero']]);
		 let s = new Set([1, 1, 2, NaN, NaN]);
		 JSON.stringify([m.get(NaN), m.get(-0), m.size, s.size])`,
		`["nan","zero",2,3]`)
}

func TestFunctionPrototypeSurfaces(t *testing.T) {
	expectEval(t,
		`function greet(greeting, name){ return greeting + ', ' + name }
		 let bound = greet.bind(null, 'hi');
		 JSON.stringify([greet.call(null, 'yo', 'a'), greet.apply(null, ['hey', 'b']), bound('c'), greet.length])`,
		`["yo, a","hey, b","hi, c",2]`)
}

func TestFunctionToStringSourceSlice(t *testing.T) {
	expectEval(t,
		`function one() { return 1 }
		 one.toString()`,
		"function one() { return 1 }")
}

func TestGetterSetterProperties(t *testing.T) {
	expectEval(t,
		`let backing = 0;
		 let o = { get x(){ return backing }, set x(v){ backing = v * 2 } };
		 o.x = 21;
		 String(o.x)`,
		"42")
}

func TestReflectForwardsToVTable(t *testing.T) {
	expectEval(t,
		`let o = {a: 1};
		 Reflect.set(o, 'b', 2);
		 JSON.stringify([Reflect.get(o, 'a'), Reflect.has(o, 'b'), Reflect.ownKeys(o)])`,
		`[1,true,["a","b"]]`)
}

func TestPromiseCombinators(t *testing.T) {
	r := newTestRealm(t)
	if _, err := r.Eval(`
		globalThis.out = {};
		Promise.all([Promise.resolve(1), 2]).then(v => out.all = v);
		Promise.race([new Promise(()=>{}), Promise.resolve('first')]).then(v => out.race = v);
		Promise.any([Promise.reject('no'), Promise.resolve('yes')]).then(v => out.any = v);
		Promise.allSettled([Promise.resolve(1), Promise.reject('r')]).then(v => out.settled = v.map(s => s.status));
	`); err != nil {
		t.Fatal(err)
	}
	r.RunJobs()
	test.AssertEqual(t,
		evalToString(t, r, `JSON.stringify([out.all, out.race, out.any, out.settled])`),
		`[[1,2],"first","yes",["fulfilled","rejected"]]`)
}

func TestPromiseRejectionTracker(t *testing.T) {
	r := newTestRealm(t)
	var ops []string
	r.Hooks.PromiseRejectionTracker = func(_ *object.Object, op string) { ops = append(ops, op) }
	if _, err := r.Eval(`globalThis.p = Promise.reject('nope')`); err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0] != "reject" {
		t.Fatalf("expected a reject notification, got %v", ops)
	}
	if _, err := r.Eval(`p.catch(() => {})`); err != nil {
		t.Fatal(err)
	}
	r.RunJobs()
	if len(ops) != 2 || ops[1] != "handle" {
		t.Fatalf("expected a handle notification, got %v", ops)
	}
}

func TestTerminationOnBudget(t *testing.T) {
	opts := config.Default()
	opts.OpcodeBudget = 10_000
	r := New(opts, logger.NewDeferLog())
	_, err := r.Eval(`while(true){}`)
	if !errors.IsTermination(err) {
		t.Fatalf("expected a termination signal, got %v", err)
	}
	// Termination is not catchable by user code (spec.md §5).
	r.VM.ResetBudget()
	_, err = r.Eval(`try { while(true){} } catch (e) { 'caught' }`)
	if !errors.IsTermination(err) {
		t.Fatalf("expected termination to skip the catch handler, got %v", err)
	}
}

func TestWellKnownGlobalCoverage(t *testing.T) {
	r := newTestRealm(t)
	installed := []string{
		"Object", "Function", "Array", "String", "Number", "Boolean", "Symbol",
		"BigInt", "Math", "JSON", "Promise", "Proxy", "Reflect", "Map", "Set",
		"WeakMap", "WeakSet", "WeakRef", "FinalizationRegistry", "RegExp",
		"Error", "TypeError", "RangeError", "ReferenceError", "SyntaxError",
		"EvalError", "URIError", "AggregateError", "ArrayBuffer", "Date",
	}
	for _, name := range installed {
		if !r.wellKnownCovered([]string{name}) {
			t.Errorf("global %s is missing", name)
		}
	}
}

func TestIndirectEvalRunsInGlobalScope(t *testing.T) {
	expectEval(t, `eval('40 + 2')`, "42")
}

func TestArgumentsObject(t *testing.T) {
	expectEval(t,
		`function f(){ return arguments.length + arguments[1] }
		 String(f(1, 40))`,
		"42")
	// The arguments object is iterable and spreads.
	expectEval(t,
		`function f(){ return [...arguments] }
		 JSON.stringify(f('a', 'b'))`,
		`["a","b"]`)
	// Arrows have no arguments of their own: they see the enclosing
	// function's.
	expectEval(t,
		`function f(){ return (() => arguments[0])() }
		 f('outer')`,
		"outer")
}

func TestMappedArgumentsAliasing(t *testing.T) {
	// Sloppy functions with simple parameter lists alias both directions.
	expectEval(t,
		`function f(a){ arguments[0] = 9; let viaParam = a; a = 10; return [viaParam, arguments[0]] }
		 JSON.stringify(f(1))`,
		`[9,10]`)
	// Strict functions get the unmapped snapshot.
	expectEval(t,
		`"use strict";
		 function f(a){ arguments[0] = 9; return a }
		 String(f(1))`,
		"1")
	// A parameter named arguments shadows the implicit binding.
	expectEval(t,
		`function f(arguments){ return arguments }
		 f('shadowed')`,
		"shadowed")
}

func TestWithStatement(t *testing.T) {
	// Names resolve against the with object first, then fall outward.
	expectEval(t,
		`let fallthrough = 1;
		 let o = {x: 40};
		 with (o) { x = x + 2; fallthrough = 5 }
		 JSON.stringify([o.x, fallthrough])`,
		`[42,5]`)
	// A binding absent from the object still reaches the outer scope.
	expectEval(t,
		`let y = 'outer';
		 with ({}) { y = 'written' }
		 y`,
		"written")
}

func TestForAwaitOf(t *testing.T) {
	r := newTestRealm(t)
	if _, err := r.Eval(`
		globalThis.out = [];
		async function f(){
			for await (const x of [Promise.resolve(1), 2, Promise.resolve(3)]) {
				out.push(x);
			}
			out.push('done');
		}
		f();
	`); err != nil {
		t.Fatal(err)
	}
	r.RunJobs()
	test.AssertEqual(t, evalToString(t, r, `out.join(',')`), "1,2,3,done")
}

func TestEarlyErrors(t *testing.T) {
	cases := []struct {
		name, src string
	}{
		{"strict assignment to eval", `"use strict"; eval = 1;`},
		{"strict assignment to arguments", `"use strict"; function f(){ arguments = 1 } f()`},
		{"strict duplicate parameters", `"use strict"; function f(a, a){} f()`},
		{"duplicate parameters with defaults", `function f(a, a = 1){} f()`},
		{"strict reserved word binding", `"use strict"; let interface = 1;`},
		{"strict legacy octal", `"use strict"; 0123;`},
		{"strict with", `"use strict"; with ({}) {}`},
		{"strict delete of a variable", `"use strict"; let x = 1; delete x;`},
		{"duplicate let", `let dup = 1; let dup = 2;`},
		{"let conflicting with var", `var both = 1; let both = 2;`},
		{"undefined break label", `for (;;) { break missing }`},
		{"undefined continue label", `lbl: { for (;;) { continue lbl } }`},
		{"break outside loop", `break;`},
		{"return outside function", `return 1;`},
		{"yield as identifier in generator", `function* g(){ let yield = 1 } g()`},
		{"await as identifier in async", `async function f(){ let await = 1 } f()`},
		{"for await outside async", `for await (const x of []) {}`},
		{"super outside method", `function f(){ return super.x } f()`},
		{"async generator unsupported", `async function* g(){}`},
	}
	for _, tc := range cases {
		r := newTestRealm(t)
		_, err := r.Eval(tc.src)
		if err == nil {
			t.Errorf("%s: expected a SyntaxError", tc.name)
			continue
		}
		ee, ok := err.(*errors.EngineError)
		if !ok || ee.Kind != errors.KindSyntax {
			t.Errorf("%s: expected SyntaxError, got %v", tc.name, err)
		}
	}
}

func TestSloppyLegacyOctal(t *testing.T) {
	expectEval(t, `String(0123)`, "83")
}

func TestUndefinedLabelIsCatchableSyntaxError(t *testing.T) {
	// The failure surfaces as an error from Eval, never a crash; a second
	// evaluation on the same realm still works.
	r := newTestRealm(t)
	if _, err := r.Eval(`for (;;) { break nowhere }`); err == nil {
		t.Fatalf("expected an error for the undefined label")
	}
	test.AssertEqual(t, evalToString(t, r, `1 + 1`), "2")
}

func TestBreakOutOfWithAndBlocks(t *testing.T) {
	expectEval(t,
		`let out = [];
		 let probe = 'outer';
		 for (let i = 0; i < 3; i++) {
		   with ({probe: 'inner'}) {
		     if (i === 1) break;
		     out.push(probe);
		   }
		 }
		 out.push(probe);
		 out.join(',')`,
		"inner,outer")
}

func TestHoistedFunctionDeclarations(t *testing.T) {
	expectEval(t, `String(before()); function before(){ return 'hoisted' } before()`, "hoisted")
}
