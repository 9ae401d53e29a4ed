package sanity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"snifferconfig/internal/domain"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// defaultExprTimeout bounds one expression evaluation.
const defaultExprTimeout = 100 * time.Millisecond

// Expr is a Lua boolean expression evaluated against one field.
// The field value is bound to the global `value` (nil when absent).
type Expr struct {
	RuleName string
	Key      string
	Source   string
	Message  string
	Timeout  time.Duration

	proto *lua.FunctionProto
}

// NewExpr compiles expression once; the compiled proto is shared by all evaluations.
// Params: rule name, field key, Lua expression source, and violation message.
// Returns: compiled rule or syntax error.
func NewExpr(name, key, source, message string) (*Expr, error) {
	chunkName := name
	if chunkName == "" {
		chunkName = key
	}
	chunk, err := parse.Parse(strings.NewReader("return ("+source+")"), chunkName)
	if err != nil {
		return nil, fmt.Errorf("parse rule %q: %w", chunkName, err)
	}
	proto, err := lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", chunkName, err)
	}
	return &Expr{
		RuleName: name,
		Key:      key,
		Source:   source,
		Message:  message,
		Timeout:  defaultExprTimeout,
		proto:    proto,
	}, nil
}

// Name returns rule name.
func (e *Expr) Name() string {
	if e.RuleName != "" {
		return e.RuleName
	}
	return e.Key + ":expr"
}

// Check evaluates expression in a fresh sandboxed VM.
// Params: flat input.
// Returns: violation message when expression is falsy or fails to run.
func (e *Expr) Check(flat domain.FlatMap) (string, bool) {
	L := newSandboxedVM()
	defer L.Close()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultExprTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	L.SetContext(ctx)

	value, present := flat.Get(e.Key)
	if present {
		L.SetGlobal("value", toLua(value))
	} else {
		L.SetGlobal("value", lua.LNil)
	}

	L.Push(L.NewFunctionFromProto(e.proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return fmt.Sprintf("%s: rule %s failed: %v", e.Key, e.Name(), err), false
	}
	result := L.Get(-1)
	L.Pop(1)
	if lua.LVAsBool(result) {
		return "", true
	}
	return e.message(), false
}

func (e *Expr) message() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s violates %s", e.Key, e.Source)
}

func toLua(value domain.Value) lua.LValue {
	switch v := value.Interface().(type) {
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	default:
		return lua.LNil
	}
}

// newSandboxedVM creates a Lua state without os, io, module loading, or debug access.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	for _, name := range []string{"os", "io", "require", "dofile", "loadfile", "load", "loadstring", "debug", "module", "package"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
