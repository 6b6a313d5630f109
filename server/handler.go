package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/akhenakh/languagetool-lsp/jsonrpc2"
)

// typedHandler wraps a user-provided function together with the
// metadata needed to invoke it reflectively.
type typedHandler struct {
	h           any
	paramType   reflect.Type // struct type of the params argument, nil if none
	takesConn   bool
	takesParams bool
}

var (
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	connType  = reflect.TypeOf((*jsonrpc2.Conn)(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// validateHandlerFunc checks a handler signature. Accepted forms:
//
//	func(ctx context.Context)
//	func(ctx context.Context, params *P)
//	func(ctx context.Context, conn *jsonrpc2.Conn, params *P)
//
// each optionally returning (result, error), (error), or nothing.
func validateHandlerFunc(h any) (paramType reflect.Type, takesConn, takesParams bool, err error) {
	hType := reflect.TypeOf(h)
	if hType == nil || hType.Kind() != reflect.Func {
		return nil, false, false, fmt.Errorf("handler must be a function")
	}
	if hType.NumIn() < 1 || hType.In(0) != ctxType {
		return nil, false, false, fmt.Errorf("handler must accept context.Context as first argument")
	}

	argIndex := 1
	if hType.NumIn() > argIndex && hType.In(argIndex) == connType {
		takesConn = true
		argIndex++
	}
	if hType.NumIn() > argIndex {
		paramType = hType.In(argIndex)
		if paramType.Kind() != reflect.Ptr || paramType.Elem().Kind() != reflect.Struct {
			return nil, false, false, fmt.Errorf("handler params must be a pointer to a struct, got %v", paramType)
		}
		paramType = paramType.Elem()
		takesParams = true
		argIndex++
	}
	if hType.NumIn() > argIndex {
		return nil, false, false, fmt.Errorf("handler has too many input arguments")
	}

	if hType.NumOut() > 2 {
		return nil, false, false, fmt.Errorf("handler has too many return values")
	}
	if hType.NumOut() == 2 && !hType.Out(1).Implements(errorType) {
		return nil, false, false, fmt.Errorf("handler's second return value must be error")
	}
	return paramType, takesConn, takesParams, nil
}

// invoke decodes params and calls the wrapped handler.
func (th *typedHandler) invoke(ctx context.Context, conn *jsonrpc2.Conn, params json.RawMessage) (any, error) {
	args := []reflect.Value{reflect.ValueOf(ctx)}
	if th.takesConn {
		args = append(args, reflect.ValueOf(conn))
	}
	if th.takesParams {
		paramPtr := reflect.New(th.paramType)
		if len(params) > 0 && string(params) != "null" {
			if err := json.Unmarshal(params, paramPtr.Interface()); err != nil {
				return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("failed to decode params: %v", err))
			}
		}
		args = append(args, paramPtr)
	}

	results := reflect.ValueOf(th.h).Call(args)

	var callErr error
	if n := len(results); n > 0 {
		if errVal, ok := results[n-1].Interface().(error); ok {
			callErr = errVal
		}
	}
	if callErr != nil {
		if _, ok := callErr.(*jsonrpc2.ErrorObject); ok {
			return nil, callErr
		}
		return nil, jsonrpc2.NewError(jsonrpc2.InternalError, callErr.Error())
	}

	// First return value is the result unless it was the error slot.
	if len(results) > 0 && !results[0].Type().Implements(errorType) {
		if results[0].Kind() == reflect.Ptr && results[0].IsNil() {
			return nil, nil
		}
		return results[0].Interface(), nil
	}
	return nil, nil
}
