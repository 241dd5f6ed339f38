package bytecode

import (
	"encoding/binary"
	"math"

	vmerrors "luavm/internal/errors"
)

// reader walks a binary chunk's byte stream left to right; every read
// advances pos and panics (via a returned error, since this is Go) the
// moment the stream runs short.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, vmerrors.New(vmerrors.ChunkCorrupted, "unexpected end of chunk")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readUint64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readLuaInteger() (int64, error) {
	u, err := r.readUint64()
	return int64(u), err
}

func (r *reader) readLuaNumber() (float64, error) {
	u, err := r.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// readString mirrors the format's short/long string encoding: a one-byte
// size (0 means empty, 0xFF means the real size follows as a u64), then
// size-1 payload bytes (the size includes a trailing NUL that isn't part
// of the payload).
func (r *reader) readString() (string, error) {
	size, err := r.readByte()
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	n := uint64(size)
	if size == 0xFF {
		n, err = r.readUint64()
		if err != nil {
			return "", err
		}
	}
	b, err := r.readBytes(int(n - 1))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) checkSig(want string, kind vmerrors.Kind, msg string) error {
	got, err := r.readBytes(len(want))
	if err != nil {
		return err
	}
	if string(got) != want {
		return vmerrors.New(kind, "%s", msg)
	}
	return nil
}

func (r *reader) checkByte(want byte, kind vmerrors.Kind, msg string) error {
	got, err := r.readByte()
	if err != nil {
		return err
	}
	if got != want {
		return vmerrors.New(kind, "%s", msg)
	}
	return nil
}

// checkHeader validates every fixed header field in order, matching the
// source's check_header: signature, version, format, luac data marker,
// integer sizes, then the endianness and float-format probe values.
func (r *reader) checkHeader() error {
	if err := r.checkSig(Signature, vmerrors.ChunkHeaderMismatch, "not a precompiled chunk"); err != nil {
		return err
	}
	if err := r.checkByte(LuacVersion, vmerrors.ChunkHeaderMismatch, "version mismatch"); err != nil {
		return err
	}
	if err := r.checkByte(LuacFormat, vmerrors.ChunkHeaderMismatch, "format mismatch"); err != nil {
		return err
	}
	if err := r.checkSig(LuacData, vmerrors.ChunkCorrupted, "corrupted chunk data marker"); err != nil {
		return err
	}
	if err := r.checkByte(CintSize, vmerrors.ChunkHeaderMismatch, "int size mismatch"); err != nil {
		return err
	}
	if err := r.checkByte(SizeTSize, vmerrors.ChunkHeaderMismatch, "size_t size mismatch"); err != nil {
		return err
	}
	if err := r.checkByte(InstrSize, vmerrors.ChunkHeaderMismatch, "instruction size mismatch"); err != nil {
		return err
	}
	if err := r.checkByte(LuaIntSize, vmerrors.ChunkHeaderMismatch, "lua_Integer size mismatch"); err != nil {
		return err
	}
	if err := r.checkByte(LuaNumSize, vmerrors.ChunkHeaderMismatch, "lua_Number size mismatch"); err != nil {
		return err
	}
	luacInt, err := r.readLuaInteger()
	if err != nil {
		return err
	}
	if luacInt != LuacInt {
		return vmerrors.New(vmerrors.ChunkHeaderMismatch, "endianness mismatch")
	}
	luacNum, err := r.readLuaNumber()
	if err != nil {
		return err
	}
	if luacNum != LuacNum {
		return vmerrors.New(vmerrors.ChunkHeaderMismatch, "float format mismatch")
	}
	return nil
}

func (r *reader) readCode() ([]Instruction, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	code := make([]Instruction, n)
	for i := range code {
		w, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		code[i] = Instruction(w)
	}
	return code, nil
}

func (r *reader) readConstants() ([]Constant, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	consts := make([]Constant, n)
	for i := range consts {
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagNil:
			consts[i] = Constant{Tag: tag}
		case TagBoolean:
			b, err := r.readByte()
			if err != nil {
				return nil, err
			}
			consts[i] = Constant{Tag: tag, Bool: b != 0}
		case TagInteger:
			v, err := r.readLuaInteger()
			if err != nil {
				return nil, err
			}
			consts[i] = Constant{Tag: tag, Int: v}
		case TagNumber:
			v, err := r.readLuaNumber()
			if err != nil {
				return nil, err
			}
			consts[i] = Constant{Tag: tag, Float: v}
		case TagShortStr, TagLongStr:
			s, err := r.readString()
			if err != nil {
				return nil, err
			}
			consts[i] = Constant{Tag: tag, Str: s}
		default:
			return nil, vmerrors.New(vmerrors.ChunkCorrupted, "corrupted constant tag 0x%02x", tag)
		}
	}
	return consts, nil
}

func (r *reader) readUpvalues() ([]Upvalue, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	ups := make([]Upvalue, n)
	for i := range ups {
		inStack, err := r.readByte()
		if err != nil {
			return nil, err
		}
		idx, err := r.readByte()
		if err != nil {
			return nil, err
		}
		ups[i] = Upvalue{InStack: inStack, Index: idx}
	}
	return ups, nil
}

func (r *reader) readLineInfo() ([]int, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	info := make([]int, n)
	for i := range info {
		v, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		info[i] = int(v)
	}
	return info, nil
}

func (r *reader) readLocVars() ([]LocVar, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	vars := make([]LocVar, n)
	for i := range vars {
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		start, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		end, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		vars[i] = LocVar{Name: name, StartPC: int(start), EndPC: int(end)}
	}
	return vars, nil
}

func (r *reader) readUpvalueNames() ([]string, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	names := make([]string, n)
	for i := range names {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		names[i] = s
	}
	return names, nil
}

// readProto decodes one Prototype, recursing into nested function
// prototypes, in the exact field order the format defines: source, line
// range, parameter/vararg/register-count bytes, code, constants, upvalues,
// nested protos, then debug metadata.
func (r *reader) readProto(parentSource string) (*Prototype, error) {
	source, err := r.readString()
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = parentSource
	}

	lineDefined, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	lastLineDefined, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	numParams, err := r.readByte()
	if err != nil {
		return nil, err
	}
	isVararg, err := r.readByte()
	if err != nil {
		return nil, err
	}
	maxStack, err := r.readByte()
	if err != nil {
		return nil, err
	}
	code, err := r.readCode()
	if err != nil {
		return nil, err
	}
	consts, err := r.readConstants()
	if err != nil {
		return nil, err
	}
	upvalues, err := r.readUpvalues()
	if err != nil {
		return nil, err
	}

	nProtos, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	protos := make([]*Prototype, nProtos)
	for i := range protos {
		p, err := r.readProto(source)
		if err != nil {
			return nil, err
		}
		protos[i] = p
	}

	lineInfo, err := r.readLineInfo()
	if err != nil {
		return nil, err
	}
	locVars, err := r.readLocVars()
	if err != nil {
		return nil, err
	}
	upvalueNames, err := r.readUpvalueNames()
	if err != nil {
		return nil, err
	}

	return &Prototype{
		Source:          source,
		LineDefined:     int(lineDefined),
		LastLineDefined: int(lastLineDefined),
		NumParams:       numParams,
		IsVararg:        isVararg,
		MaxStackSize:    maxStack,
		Code:            code,
		Constants:       consts,
		Upvalues:        upvalues,
		Protos:          protos,
		LineInfo:        lineInfo,
		LocVars:         locVars,
		UpvalueNames:    upvalueNames,
	}, nil
}

// Undump decodes a complete binary chunk into its main function Prototype.
func Undump(data []byte) (*Prototype, error) {
	r := &reader{data: data}
	if err := r.checkHeader(); err != nil {
		return nil, err
	}
	if _, err := r.readByte(); err != nil { // size_upvalues of the main function, discarded
		return nil, err
	}
	return r.readProto("")
}
