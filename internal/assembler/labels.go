package assembler

import "regexp"

var globalLabelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// label records where a declared name resolved to, and where it was first
// declared (for duplicate-declaration diagnostics).
type label struct {
	name       string
	offset     uint16
	declLine   int
}

// value is a named integer constant introduced by .value; it substitutes a
// literal rather than an address wherever it is referenced.
type value struct {
	name     string
	literal  int64
	declLine int
}

// symbolTable tracks every declared label and .value constant within one
// section, including local-label rewriting against the most recently seen
// global label.
type symbolTable struct {
	labels     map[string]*label
	values     map[string]*value
	lastGlobal string
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		labels: make(map[string]*label),
		values: make(map[string]*value),
	}
}

// resolveName rewrites a local (@suffix) name against the last-seen global
// label. ok is false if name is local and no global has been seen yet.
func (t *symbolTable) resolveName(name string) (resolved string, ok bool) {
	if len(name) == 0 || name[0] != '@' {
		return name, true
	}
	if t.lastGlobal == "" {
		return "", false
	}
	return t.lastGlobal + name, true
}

// declareLabel registers name (already resolved by resolveName, if it was
// local) at offset. It returns the previously-declared label if name is a
// duplicate, so the caller can report the original declaration's line.
func (t *symbolTable) declareLabel(resolvedName string, offset uint16, line int) (prior *label, duplicate bool) {
	if existing, ok := t.labels[resolvedName]; ok {
		return existing, true
	}
	t.labels[resolvedName] = &label{name: resolvedName, offset: offset, declLine: line}
	if resolvedName[0] != '@' && !isQualifiedLocal(resolvedName) {
		t.lastGlobal = resolvedName
	}
	return nil, false
}

// isQualifiedLocal reports whether name is an already-rewritten local label
// of the form "<global>@suffix".
func isQualifiedLocal(name string) bool {
	for _, r := range name {
		if r == '@' {
			return true
		}
	}
	return false
}

func (t *symbolTable) lookupLabel(resolvedName string) (*label, bool) {
	l, ok := t.labels[resolvedName]
	return l, ok
}

func (t *symbolTable) declareValue(name string, literal int64, line int) (prior *value, duplicate bool) {
	if existing, ok := t.values[name]; ok {
		return existing, true
	}
	t.values[name] = &value{name: name, literal: literal, declLine: line}
	return nil, false
}

func (t *symbolTable) lookupValue(name string) (*value, bool) {
	v, ok := t.values[name]
	return v, ok
}

// shiftLabelsAt moves every label currently at "from" to "to", used when
// instruction emission realigns the cursor and any label declared
// immediately before must track the instruction it labels.
func (t *symbolTable) shiftLabelsAt(from, to uint16) {
	if from == to {
		return
	}
	for _, l := range t.labels {
		if l.offset == from {
			l.offset = to
		}
	}
}
