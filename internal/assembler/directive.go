package assembler

// directiveHandler executes one directive's effect against the in-progress
// assembler state. args is the directive's token list with the leading
// ".name" token already removed.
type directiveHandler func(a *Assembler, line sourceLine, args []string) error

var directiveTable = map[string]directiveHandler{
	".org":    (*Assembler).directiveOrg,
	".byte":   (*Assembler).directiveByte,
	".string": (*Assembler).directiveString,
	".resv":   (*Assembler).directiveResv,
	".value":  (*Assembler).directiveValue,
	".export": (*Assembler).directiveExport,
}

func (a *Assembler) directiveOrg(line sourceLine, args []string) error {
	if len(args) != 1 {
		return a.fatalf(line, 1, "'.org' expects exactly one address operand")
	}
	v, ok, outOfRange := parseInt(args[0])
	if !ok || outOfRange || v < 0 || v > 0xffff {
		return a.fatalf(line, 1, "'.org' operand %q is not a valid 16-bit address", args[0])
	}
	addr := uint16(v)
	if a.cursor > addr {
		a.warnf(OverlappingOrg, line, 1, "'.org' moves cursor backward from 0x%04x to 0x%04x", a.cursor, addr)
	}
	if !a.originSet {
		a.originSet = true
		a.origin = addr
	}
	for uint16(len(a.code)) < addr {
		a.code = append(a.code, 0)
	}
	a.cursor = addr
	return nil
}

func (a *Assembler) directiveByte(line sourceLine, args []string) error {
	if len(args) != 1 {
		return a.fatalf(line, 1, "'.byte' expects exactly one operand")
	}
	v, ok, outOfRange := parseInt(args[0])
	if !ok || outOfRange || v < 0 || v > 255 {
		return a.fatalf(line, 1, "'.byte' operand %q does not fit in a byte", args[0])
	}
	a.emitByte(byte(v))
	return nil
}

func (a *Assembler) directiveString(line sourceLine, args []string) error {
	if len(args) != 1 {
		return a.fatalf(line, 1, "'.string' expects exactly one quoted string operand")
	}
	tok := args[0]
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return a.fatalf(line, 1, "'.string' operand must be a double-quoted string")
	}
	s, err := unescapeString(tok[1 : len(tok)-1])
	if err != nil {
		return a.fatalf(line, 1, "'.string': %s", err)
	}
	for i := 0; i < len(s); i++ {
		a.emitByte(s[i])
	}
	a.emitByte(0)
	return nil
}

func (a *Assembler) directiveResv(line sourceLine, args []string) error {
	if len(args) != 1 {
		return a.fatalf(line, 1, "'.resv' expects exactly one operand")
	}
	v, ok, outOfRange := parseInt(args[0])
	if !ok || outOfRange || v < 0 || v > 0xffff {
		return a.fatalf(line, 1, "'.resv' operand %q is not a valid count", args[0])
	}
	for i := int64(0); i < v; i++ {
		a.emitByte(0)
	}
	return nil
}

func (a *Assembler) directiveValue(line sourceLine, args []string) error {
	if len(args) != 2 {
		return a.fatalf(line, 1, "'.value' expects a name and a literal")
	}
	name := args[0]
	if !globalLabelPattern.MatchString(name) {
		return a.fatalf(line, 1, "'.value' name %q is not a valid identifier", name)
	}
	v, ok, outOfRange := parseInt(args[1])
	if !ok {
		return a.fatalf(line, 2, "'.value' operand %q is not a literal", args[1])
	}
	if outOfRange {
		return a.fatalf(line, 2, "'.value' operand %q is out of range", args[1])
	}
	if _, dup := a.syms.declareValue(name, v, line.number); dup {
		return a.fatalf(line, 1, "'.value' %q redeclared", name)
	}
	return nil
}

func (a *Assembler) directiveExport(line sourceLine, args []string) error {
	if len(args) != 1 {
		return a.fatalf(line, 1, "'.export' expects exactly one label name")
	}
	a.pendingExports = append(a.pendingExports, exportRequest{name: args[0], line: line.number})
	return nil
}

func (a *Assembler) runDirective(line sourceLine) error {
	tokens := tokenize(line.text)
	name := tokens[0]
	handler, ok := directiveTable[name]
	if !ok {
		return a.fatalf(line, 1, "unknown directive %q", name)
	}
	return handler(a, line, tokens[1:])
}

type exportRequest struct {
	name string
	line int
}
