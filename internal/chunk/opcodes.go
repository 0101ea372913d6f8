// Package chunk implements the linear byte-array bytecode container:
// opcode+operand stream, a parallel source-line table, and a constant pool.
// This is the wire format defining the contract between the (external,
// out-of-scope) compiler and the interpreter in internal/vm.
package chunk

// OpCode is a single bytecode instruction's operation byte.
//
// A clox-family instruction set: each opcode has a fixed operand layout
// (0, 1, or 2 operand bytes, with OP_CLOSURE additionally followed by one
// is-local/index byte pair per upvalue) and a fixed declared stack effect,
// which internal/vm's dispatch loop implements.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpGetSuper
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn
	OpClass
	OpInherit
	OpMethod
)

// String names an opcode for disassembly.
func (op OpCode) String() string {
	switch op {
	case OpConstant:
		return "OP_CONSTANT"
	case OpNil:
		return "OP_NIL"
	case OpTrue:
		return "OP_TRUE"
	case OpFalse:
		return "OP_FALSE"
	case OpPop:
		return "OP_POP"
	case OpGetLocal:
		return "OP_GET_LOCAL"
	case OpSetLocal:
		return "OP_SET_LOCAL"
	case OpGetGlobal:
		return "OP_GET_GLOBAL"
	case OpDefineGlobal:
		return "OP_DEFINE_GLOBAL"
	case OpSetGlobal:
		return "OP_SET_GLOBAL"
	case OpGetUpvalue:
		return "OP_GET_UPVALUE"
	case OpSetUpvalue:
		return "OP_SET_UPVALUE"
	case OpGetProperty:
		return "OP_GET_PROPERTY"
	case OpSetProperty:
		return "OP_SET_PROPERTY"
	case OpGetSuper:
		return "OP_GET_SUPER"
	case OpEqual:
		return "OP_EQUAL"
	case OpGreater:
		return "OP_GREATER"
	case OpLess:
		return "OP_LESS"
	case OpAdd:
		return "OP_ADD"
	case OpSubtract:
		return "OP_SUBTRACT"
	case OpMultiply:
		return "OP_MULTIPLY"
	case OpDivide:
		return "OP_DIVIDE"
	case OpNot:
		return "OP_NOT"
	case OpNegate:
		return "OP_NEGATE"
	case OpPrint:
		return "OP_PRINT"
	case OpJump:
		return "OP_JUMP"
	case OpJumpIfFalse:
		return "OP_JUMP_IF_FALSE"
	case OpLoop:
		return "OP_LOOP"
	case OpCall:
		return "OP_CALL"
	case OpInvoke:
		return "OP_INVOKE"
	case OpSuperInvoke:
		return "OP_SUPER_INVOKE"
	case OpClosure:
		return "OP_CLOSURE"
	case OpCloseUpvalue:
		return "OP_CLOSE_UPVALUE"
	case OpReturn:
		return "OP_RETURN"
	case OpClass:
		return "OP_CLASS"
	case OpInherit:
		return "OP_INHERIT"
	case OpMethod:
		return "OP_METHOD"
	default:
		return "OP_UNKNOWN"
	}
}
