// Package assembler translates Irid assembly source into an IOF object or
// a raw flat binary.
package assembler

import (
	"encoding/binary"
	"fmt"

	"irid/internal/iof"
	"irid/internal/isa"
)

// Options configures one assembly run.
type Options struct {
	// Filename is used in diagnostics.
	Filename string
	// WarnOriginOverlap toggles the OVERLAPING_ORG warning. The zero
	// value leaves it off; the iridas CLI turns it on unless
	// "-Wno-origin-overlap" is given.
	WarnOriginOverlap bool
}

// Result is what AssembleString produces: the IOF section form and the
// warnings raised along the way. The raw resolved binary form comes from
// AssembleRawBinary instead.
type Result struct {
	Section  *iof.Section
	Warnings []*Warning
}

type pendingLink struct {
	name   string
	offset uint16
	line   int
	column int
}

// Assembler holds all mutable state for one source file's assembly. It is
// not reused across files.
type Assembler struct {
	opts Options

	code   []byte
	cursor uint16

	originSet bool
	origin    uint16

	syms           *symbolTable
	pendingLinks   []pendingLink
	pendingExports []exportRequest
	warnings       []*Warning
}

// New creates an Assembler for one source file.
func New(opts Options) *Assembler {
	return &Assembler{
		opts: opts,
		syms: newSymbolTable(),
	}
}

func (a *Assembler) fatalf(line sourceLine, column int, format string, args ...interface{}) error {
	return &Diagnostic{
		File:    a.opts.Filename,
		Line:    line.number,
		Column:  column,
		Snippet: line.raw,
		Message: fmt.Sprintf(format, args...),
	}
}

func (a *Assembler) warnf(kind WarningKind, line sourceLine, column int, format string, args ...interface{}) {
	if kind == OverlappingOrg && !a.opts.WarnOriginOverlap {
		return
	}
	a.warnings = append(a.warnings, &Warning{
		Kind:    kind,
		File:    a.opts.Filename,
		Line:    line.number,
		Column:  column,
		Snippet: line.raw,
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *Assembler) emitByte(b byte) {
	if uint16(len(a.code)) <= a.cursor {
		a.code = append(a.code, b)
	} else {
		a.code[a.cursor] = b
	}
	a.cursor++
}

// align rounds the cursor up to the next 4-byte boundary ahead of emitting
// an instruction, shifting any label currently pointing at the old cursor
// to the realigned offset. Data directives never call this.
func (a *Assembler) align() {
	if a.cursor%isa.InstrSize == 0 {
		return
	}
	next := ((a.cursor / isa.InstrSize) + 1) * isa.InstrSize
	a.syms.shiftLabelsAt(a.cursor, next)
	for uint16(len(a.code)) < next {
		a.code = append(a.code, 0)
	}
	a.cursor = next
}

// AssembleString runs a full assembly pass over source and returns the
// resulting IOF section. Link points are left unresolved for the linker.
func AssembleString(opts Options, source string) (*Result, error) {
	a := New(opts)
	if err := a.run(source); err != nil {
		return nil, err
	}
	return a.toResult()
}

// AssembleRawBinary runs a full assembly pass and resolves every link point
// in-place against the file's own label table, returning a flat byte
// sequence suitable for direct loading (the "-r" / "--raw" CLI mode).
func AssembleRawBinary(opts Options, source string) ([]byte, []*Warning, error) {
	a := New(opts)
	if err := a.run(source); err != nil {
		return nil, nil, err
	}
	return a.toRawBinary()
}

func (a *Assembler) run(source string) error {
	lines := splitLines(source)
	for _, line := range lines {
		var err error
		switch line.kind {
		case lineBlank:
			continue
		case lineLabel:
			err = a.handleLabel(line)
		case lineDirective:
			err = a.runDirective(line)
		case lineInstruction:
			err = a.handleInstruction(line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) handleLabel(line sourceLine) error {
	name := line.text[:len(line.text)-1]
	if name == "" {
		return a.fatalf(line, 1, "empty label name")
	}

	resolved, ok := a.syms.resolveName(name)
	if !ok {
		return a.fatalf(line, 1, "local label %q declared before any global label", name)
	}
	if resolved == name && name[0] != '@' && !globalLabelPattern.MatchString(name) {
		return a.fatalf(line, 1, "label %q is not a valid identifier", name)
	}

	if prior, dup := a.syms.declareLabel(resolved, a.cursor, line.number); dup {
		return a.fatalf(line, 1, "label %q redeclared (first declared on line %d)", resolved, prior.declLine)
	}
	return nil
}

func (a *Assembler) handleInstruction(line sourceLine) error {
	tokens := tokenize(line.text)
	mnemonic := tokens[0]
	operands := tokens[1:]

	in, ok := isa.ByMnemonic(mnemonic)
	if !ok {
		return a.fatalf(line, 1, "unknown mnemonic %q", mnemonic)
	}

	a.align()
	instrOffset := a.cursor

	switch in.Family {
	case isa.FamilyNone:
		if len(operands) != 0 {
			return a.fatalf(line, 1, "%q takes no operands", mnemonic)
		}
		a.emitInstr(in.Opcode, nil, nil)

	case isa.FamilyReg:
		if len(operands) != 1 {
			return a.fatalf(line, 1, "%q expects exactly one register operand", mnemonic)
		}
		reg, err := a.requireRegister(line, 1, operands[0])
		if err != nil {
			return err
		}
		a.emitInstr(in.Opcode, []byte{byte(reg)}, nil)

	case isa.FamilyRegReg:
		if len(operands) != 2 {
			return a.fatalf(line, 2, "%q expects two operands", mnemonic)
		}
		dest, err := a.requireRegister(line, 1, operands[0])
		if err != nil {
			return err
		}
		return a.encodeDestAndAny(line, mnemonic, instrOffset, dest, operands[1])

	case isa.FamilyRegImm8:
		if len(operands) != 2 {
			return a.fatalf(line, 2, "%q expects two operands", mnemonic)
		}
		dest, err := a.requireRegister(line, 1, operands[0])
		if err != nil {
			return err
		}
		lit, err := a.requireImm8(line, 2, operands[1])
		if err != nil {
			return err
		}
		a.emitInstr(in.Opcode, []byte{byte(dest)}, imm8Bytes(lit))

	case isa.FamilyRegImm16:
		if len(operands) != 2 {
			return a.fatalf(line, 2, "%q expects two operands", mnemonic)
		}
		dest, err := a.requireRegister(line, 1, operands[0])
		if err != nil {
			return err
		}
		return a.encodeRegImm16(line, mnemonic, in.Opcode, instrOffset, dest, operands[1], dest.IsHalf())

	case isa.FamilyAddr:
		if len(operands) != 1 {
			return a.fatalf(line, 1, "%q expects exactly one address operand", mnemonic)
		}
		return a.encodeAddr(line, mnemonic, in.Opcode, instrOffset, operands[0])

	case isa.FamilyImm8:
		if len(operands) != 1 {
			return a.fatalf(line, 1, "%q expects exactly one immediate operand", mnemonic)
		}
		lit, err := a.requireImm8(line, 1, operands[0])
		if err != nil {
			return err
		}
		a.emitInstr(in.Opcode, imm8Bytes(lit), nil)
	}

	return nil
}

// encodeDestAndAny implements the "dest_and_any" family: the plain,
// non-suffixed base mnemonic (mov, cmp, cmg, cml, add, sub, and, or, mul,
// shr, shl) whose second operand may be a register, a literal, or a
// symbol. A register operand keeps the plain RegReg opcode; a literal or
// symbol switches to the mnemonic's "8" or "16" variant depending on
// width, since the opcode alone determines how the emulator will later
// decode the operand bytes. Mnemonics outside this generic set (load,
// store) always require a register second operand.
func (a *Assembler) encodeDestAndAny(line sourceLine, mnemonic string, instrOffset uint16, dest isa.Register, operandTok string) error {
	in, _ := isa.ByMnemonic(mnemonic)

	if reg, ok := isa.RegisterByName(operandTok); ok {
		a.emitInstr(in.Opcode, []byte{byte(dest)}, []byte{byte(reg)})
		return nil
	}

	if !isa.IsGenericBase(mnemonic) {
		return a.fatalf(line, 2, "%q expects a register operand", mnemonic)
	}

	lit, isLiteral, symName, err := a.resolveAny(line, 2, operandTok)
	if err != nil {
		return err
	}
	if isLiteral && (lit < 0 || lit > 0xffff) {
		return a.fatalf(line, 2, "operand %q does not fit in 16 bits", operandTok)
	}

	if isLiteral && lit >= 0 && lit <= 0xff {
		if imm8, ok := isa.ByMnemonic(mnemonic + "8"); ok {
			a.emitInstr(imm8.Opcode, []byte{byte(dest)}, imm8Bytes(lit))
			return nil
		}
	}

	imm16, ok := isa.ByMnemonic(mnemonic + "16")
	if !ok {
		imm16, ok = isa.ByMnemonic(mnemonic + "8")
		if !ok {
			return a.fatalf(line, 2, "%q has no immediate-width variant for this operand", mnemonic)
		}
		if isLiteral && (lit < 0 || lit > 0xff) {
			return a.fatalf(line, 2, "operand %q does not fit the only immediate width %q supports", operandTok, mnemonic)
		}
		a.emitInstr(imm16.Opcode, []byte{byte(dest)}, imm8Bytes(lit))
		return nil
	}

	if dest.IsHalf() {
		a.warnf(HalfRegTruncation, line, 1, "writing a 16-bit value into half-register %q truncates", dest)
	}

	if isLiteral {
		a.emitInstr(imm16.Opcode, []byte{byte(dest)}, imm16Bytes(uint16(lit)))
		return nil
	}
	a.recordLink(symName, instrOffset+2, line)
	a.emitInstr(imm16.Opcode, []byte{byte(dest)}, imm16Bytes(0))
	return nil
}

// encodeRegImm16 implements an explicitly-suffixed "16" mnemonic (mov16,
// cmp16, add16, load16, store16, ...): the operand must be a literal or
// symbol, never a register.
func (a *Assembler) encodeRegImm16(line sourceLine, mnemonic string, opcode isa.Opcode, instrOffset uint16, dest isa.Register, operandTok string, destIsHalf bool) error {
	lit, isLiteral, symName, err := a.resolveAny(line, 2, operandTok)
	if err != nil {
		return err
	}
	if destIsHalf && (!isLiteral || lit > 0xff) {
		a.warnf(HalfRegTruncation, line, 1, "writing a 16-bit value into half-register %q truncates", dest)
	}
	if isLiteral {
		if lit < 0 || lit > 0xffff {
			return a.fatalf(line, 2, "operand %q does not fit in 16 bits", operandTok)
		}
		a.emitInstr(opcode, []byte{byte(dest)}, imm16Bytes(uint16(lit)))
		return nil
	}
	a.recordLink(symName, instrOffset+2, line)
	a.emitInstr(opcode, []byte{byte(dest)}, imm16Bytes(0))
	return nil
}

// encodeAddr implements the single-16-bit-operand, no-register family
// (jmp, jeq, call, push16).
func (a *Assembler) encodeAddr(line sourceLine, mnemonic string, opcode isa.Opcode, instrOffset uint16, operandTok string) error {
	lit, isLiteral, symName, err := a.resolveAny(line, 1, operandTok)
	if err != nil {
		return err
	}
	if isLiteral {
		if lit < 0 || lit > 0xffff {
			return a.fatalf(line, 1, "operand %q does not fit in 16 bits", operandTok)
		}
		a.emitInstr(opcode, nil, imm16Bytes(uint16(lit)))
		return nil
	}
	a.recordLink(symName, instrOffset+1, line)
	a.emitInstr(opcode, nil, imm16Bytes(0))
	return nil
}

func (a *Assembler) requireRegister(line sourceLine, column int, tok string) (isa.Register, error) {
	reg, ok := isa.RegisterByName(tok)
	if !ok {
		return 0, a.fatalf(line, column, "expected a register, got %q", tok)
	}
	return reg, nil
}

func (a *Assembler) requireImm8(line sourceLine, column int, tok string) (int64, error) {
	lit, isLiteral, symName, err := a.resolveAny(line, column, tok)
	if err != nil {
		return 0, err
	}
	if !isLiteral {
		return 0, a.fatalf(line, column, "symbol %q cannot be used where an 8-bit immediate is required", symName)
	}
	if lit < 0 || lit > 0xff {
		return 0, a.fatalf(line, column, "operand %q does not fit in 8 bits", tok)
	}
	return lit, nil
}

// resolveAny classifies a non-register operand token: either a resolved
// literal (possibly substituted from a .value) or an unresolved symbol
// name, already local-rewritten.
func (a *Assembler) resolveAny(line sourceLine, column int, tok string) (literal int64, isLiteral bool, symbolName string, err error) {
	if v, ok, outOfRange := parseInt(tok); ok {
		if outOfRange {
			return 0, false, "", a.fatalf(line, column, "literal %q is out of range", tok)
		}
		return v, true, "", nil
	}

	resolved, ok := a.syms.resolveName(tok)
	if !ok {
		return 0, false, "", a.fatalf(line, column, "local label %q referenced before any global label", tok)
	}
	if val, ok := a.syms.lookupValue(resolved); ok {
		return val.literal, true, "", nil
	}
	return 0, false, resolved, nil
}

func (a *Assembler) recordLink(name string, offset uint16, line sourceLine) {
	a.pendingLinks = append(a.pendingLinks, pendingLink{name: name, offset: offset, line: line.number})
}

func imm8Bytes(v int64) []byte {
	return []byte{byte(v)}
}

func imm16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// emitInstr writes one 4-byte instruction slot: opcode, then operand bytes
// in order, zero-padded out to isa.InstrSize. The caller has already
// aligned the cursor via align(), so this never needs to realign.
func (a *Assembler) emitInstr(opcode isa.Opcode, operand1 []byte, operand2 []byte) {
	start := a.cursor
	a.emitByte(byte(opcode))
	for _, b := range operand1 {
		a.emitByte(b)
	}
	for _, b := range operand2 {
		a.emitByte(b)
	}
	for a.cursor-start < isa.InstrSize {
		a.emitByte(0)
	}
}

func (a *Assembler) toResult() (*Result, error) {
	sec := &iof.Section{Name: "text", Code: a.code}
	if a.originSet {
		sec.SetOrigin(a.origin)
	}

	for name, l := range a.syms.labels {
		sec.AddSymbol(name, l.offset)
	}

	for _, req := range a.pendingExports {
		l, ok := a.syms.lookupLabel(req.name)
		if !ok {
			return nil, &Diagnostic{
				File:    a.opts.Filename,
				Line:    req.line,
				Message: fmt.Sprintf("'.export' target %q is not a declared label", req.name),
			}
		}
		sec.AddExport(req.name, l.offset)
	}

	for _, pl := range a.pendingLinks {
		sec.AddLink(pl.name, pl.offset)
	}

	return &Result{Section: sec, Warnings: a.warnings}, nil
}

func (a *Assembler) toRawBinary() ([]byte, []*Warning, error) {
	out := make([]byte, len(a.code))
	copy(out, a.code)

	for _, pl := range a.pendingLinks {
		l, ok := a.syms.lookupLabel(pl.name)
		if !ok {
			return nil, nil, &Diagnostic{
				File:    a.opts.Filename,
				Line:    pl.line,
				Column:  pl.column,
				Message: fmt.Sprintf("unresolved symbol %q", pl.name),
			}
		}
		binary.LittleEndian.PutUint16(out[pl.offset:pl.offset+2], l.offset)
	}

	return out, a.warnings, nil
}
