package codegen

import "errors"

// Fixed diagnostic strings, spec.md §7.
var (
	ErrSymbolNotFound      = errors.New("can't find symbol")
	ErrDuplicateArgument   = errors.New("duplicate argument name")
	ErrDuplicateFunction   = errors.New("duplicate function name")
	ErrRedeclaredVariable  = errors.New("redeclared variable")
	ErrRedeclaredConstant  = errors.New("redeclared constant")
	ErrVoidVariable        = errors.New("variables can't be void")
	ErrUnsupportedArgType  = errors.New("unsupported argument type")
	ErrFuncUsedAsVariable  = errors.New("function used as a variable")
	ErrVarUsedAsFunction   = errors.New("variable used as a function")
	ErrAssignToConstOrFunc = errors.New("can't assign to constant or function")
	ErrArgCountMismatch    = errors.New("mismatched number of arguments")
	ErrUnsupportedCast     = errors.New("unsupported cast")
	ErrReturnValueFromVoid = errors.New("can't return a value from a function with rettype void")
	ErrReturnVoidFromInt   = errors.New("can't return without a value from a function with rettype int")
	ErrConstUninitialized  = errors.New("constant must be initialized")
	ErrConstNotConstExpr   = errors.New("constant must be initialized with a constant expression")
	ErrBreakContinueOutsideLoop = errors.New("break or continue used outside loop")
)
