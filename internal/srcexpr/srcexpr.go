// Package srcexpr is the Go-native substitute for the C++ macro and
// `__COUNTER__` pipeline that the original library used to recover,
// at compile time, the raw source text of an assertion and the
// position of every `$[...]` marker inside it.
//
// Go has no user-level compile-time macros, so this recovers the same
// information at process-startup time (lazily, on first use of each
// call site) by parsing the calling source file with go/parser and
// walking the resulting AST — the preferred strategy named in the
// framework's own design notes ("a procedural macro that walks the
// expression AST"), adapted to a language whose macro system *is* its
// own compiler front end.
package srcexpr

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sync"
)

// Marker describes one `$[...]`-equivalent call found inside a
// condition expression: a call to the package-level V function.
type Marker struct {
	// Offset/Length of the marker's call expression ("V(...)") within
	// the raw condition text.
	IdentOffset, IdentLength int
	// Offset/Length of the inner expression (the argument to V) within
	// the raw condition text.
	ExprOffset, ExprLength int
	// NeedBracket is true when the inner expression spans more than a
	// single identifier or literal token.
	NeedBracket bool
	// Line is the marker call's own source line, used by MarkerOccurrence
	// to resolve a running V call back to this marker by identity rather
	// than by call order (call order breaks under short-circuiting).
	Line int
}

// Site is the immutable, parsed metadata for one call site.
type Site struct {
	RawText string
	Markers []Marker
}

type fileCache struct {
	fset *token.FileSet
	file *ast.File
	src  []byte
}

var (
	mu       sync.Mutex
	files    = map[string]*fileCache{}
	sites    = map[siteKey]*Site{}
	pcOccur  = map[uintptr]int{} // call-site PC -> assigned occurrence index
	lineNext = map[string]int{} // "file:line" -> next unassigned occurrence index

	vPcOccur  = map[uintptr]int{} // V() call-site PC -> assigned occurrence index, scoped like pcOccur above
	vLineNext = map[string]int{} // "file:line" -> next unassigned V() occurrence index
)

type siteKey struct {
	file  string
	line  int
	occur int
}

// markerFuncName is the unqualified function name srcexpr treats as a
// value marker, e.g. calls written as `assert.V(x)` or `V(x)`.
const markerFuncName = "V"

// Lookup returns the parsed Site for the call to a function literally
// named calleeName found at file:line, using pc (the call site's
// program counter, from runtime.Caller) to disambiguate the rare case
// of multiple calls to calleeName on the same source line. The first
// time a given pc is seen it claims the next unclaimed AST match on
// that line, in left-to-right source order; every later call from the
// same pc reuses that assignment — so a call site inside a loop always
// resolves to the same AST node instead of cycling through siblings.
// Results are cached: each file is parsed at most once per process.
func Lookup(pc uintptr, file string, line int, calleeName string) (*Site, error) {
	mu.Lock()
	defer mu.Unlock()

	occur, ok := pcOccur[pc]
	if !ok {
		lineKey := fmt.Sprintf("%s:%d", file, line)
		occur = lineNext[lineKey]
		lineNext[lineKey] = occur + 1
		pcOccur[pc] = occur
	}

	key := siteKey{file: file, line: line, occur: occur}
	if s, ok := sites[key]; ok {
		return s, nil
	}

	fc, err := loadFile(file)
	if err != nil {
		return nil, err
	}

	matches := findCalls(fc, line, calleeName)
	if occur >= len(matches) {
		return nil, fmt.Errorf("srcexpr: no call to %s found at %s:%d (occurrence %d)", calleeName, file, line, occur)
	}
	call := matches[occur]

	rawStart, rawEnd, ok := condExprSpan(call)
	if !ok {
		return nil, fmt.Errorf("srcexpr: could not locate condition expression in call to %s at %s:%d", calleeName, file, line)
	}

	raw := fc.src[rawStart:rawEnd]
	var markers []Marker
	var condNode ast.Expr
	if n, ok := nodeAtSpan(fc, rawStart, rawEnd); ok {
		condNode = n
	}
	if condNode != nil {
		ast.Inspect(condNode, func(n ast.Node) bool {
			ce, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if !isCallNamed(ce, markerFuncName) || len(ce.Args) != 1 {
				return true
			}
			argStart := int(ce.Args[0].Pos()) - 1 - rawStart
			argEnd := int(ce.Args[0].End()) - 1 - rawStart
			callStart := int(ce.Pos()) - 1 - rawStart
			callEnd := int(ce.End()) - 1 - rawStart
			if argStart < 0 || argEnd > len(raw) {
				return true
			}
			markers = append(markers, Marker{
				IdentOffset: callStart,
				IdentLength: callEnd - callStart,
				ExprOffset:  argStart,
				ExprLength:  argEnd - argStart,
				NeedBracket: needsBracket(ce.Args[0]),
				Line:        fc.fset.Position(ce.Pos()).Line,
			})
			return true
		})
	}

	site := &Site{RawText: string(raw), Markers: markers}
	sites[key] = site
	return site, nil
}

// MarkerOccurrence returns the 0-based occurrence index of a V call
// site identified by pc, among every V call site previously resolved at
// file:line — the same "first touch claims the next index, every later
// call from the same pc reuses it" scheme Lookup uses to disambiguate
// repeated Check/Require callees on one line. Because a given `V(...)`
// occurrence in source compiles to one fixed call instruction, pc is a
// stable identity for that occurrence across every execution of it,
// including ones skipped by short-circuit evaluation on other runs —
// so the caller can use the returned index to find the one marker it
// belongs to instead of assuming call order matches marker order.
func MarkerOccurrence(pc uintptr, file string, line int) int {
	mu.Lock()
	defer mu.Unlock()

	occ, ok := vPcOccur[pc]
	if !ok {
		lineKey := fmt.Sprintf("%s:%d", file, line)
		occ = vLineNext[lineKey]
		vLineNext[lineKey] = occ + 1
		vPcOccur[pc] = occ
	}
	return occ
}

func loadFile(file string) (*fileCache, error) {
	if fc, ok := files[file]; ok {
		return fc, nil
	}
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("srcexpr: parsing %s: %w", file, err)
	}
	src, err := readFileBytes(fset, f)
	if err != nil {
		return nil, err
	}
	fc := &fileCache{fset: fset, file: f, src: src}
	files[file] = fc
	return fc, nil
}

func findCalls(fc *fileCache, line int, calleeName string) []*ast.CallExpr {
	var out []*ast.CallExpr
	ast.Inspect(fc.file, func(n ast.Node) bool {
		ce, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		pos := fc.fset.Position(ce.Pos())
		if pos.Line != line {
			return true
		}
		if !isCallNamed(ce, calleeName) {
			return true
		}
		out = append(out, ce)
		return true
	})
	return out
}

func isCallNamed(ce *ast.CallExpr, name string) bool {
	switch fn := ce.Fun.(type) {
	case *ast.Ident:
		return fn.Name == name
	case *ast.SelectorExpr:
		return fn.Sel.Name == name
	}
	return false
}

// condExprSpan finds the last argument of the call — the condition —
// and returns its byte span in the source file.
func condExprSpan(ce *ast.CallExpr) (start, end int, ok bool) {
	if len(ce.Args) == 0 {
		return 0, 0, false
	}
	last := ce.Args[len(ce.Args)-1]
	return int(last.Pos()) - 1, int(last.End()) - 1, true
}

func nodeAtSpan(fc *fileCache, start, end int) (ast.Expr, bool) {
	var found ast.Expr
	ast.Inspect(fc.file, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		s := int(n.Pos()) - 1
		e := int(n.End()) - 1
		if s == start && e == end {
			if expr, ok := n.(ast.Expr); ok {
				found = expr
			}
		}
		return true
	})
	return found, found != nil
}

func needsBracket(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident, *ast.BasicLit:
		return false
	case *ast.SelectorExpr:
		// a single dotted path (e.g. foo.Bar) reads as one token visually
		return false
	default:
		return true
	}
}

func readFileBytes(fset *token.FileSet, f *ast.File) ([]byte, error) {
	tf := fset.File(f.Pos())
	if tf == nil {
		return nil, fmt.Errorf("srcexpr: missing token.File")
	}
	path := tf.Name()
	return os.ReadFile(path)
}
