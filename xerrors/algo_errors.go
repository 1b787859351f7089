package xerrors

import "fmt"

var (
	// ErrIndexOutOfRange 单点访问越界。
	ErrIndexOutOfRange = newSentinel(ErrOutOfRange, 400101, "index out of range")
	// ErrInvalidRange 区间端点非法。
	ErrInvalidRange = newSentinel(ErrOutOfRange, 400102, "invalid range")
	// ErrInvalidInput 输入格式错误。
	ErrInvalidInput = newSentinel(ErrInvalidArg, 400002, "invalid input")
	// ErrUnknownOperation 未知的合并运算。
	ErrUnknownOperation = newSentinel(ErrInvalidArg, 400103, "unknown operation")
)

// IndexOutOfRange 返回携带下标与逻辑长度的越界错误，Cause 为 ErrIndexOutOfRange。
func IndexOutOfRange(index, size int) *Error {
	e := New(ErrOutOfRange, ErrIndexOutOfRange.Code, ErrIndexOutOfRange.Message,
		fmt.Sprintf("index %d not in [0, %d)", index, size), ErrIndexOutOfRange)
	return e.WithContext("index", index).WithContext("size", size)
}

// InvalidRange 返回携带区间与逻辑长度的区间错误，Cause 为 ErrInvalidRange。
func InvalidRange(left, right, size int) *Error {
	e := New(ErrOutOfRange, ErrInvalidRange.Code, ErrInvalidRange.Message,
		fmt.Sprintf("range [%d, %d) not within [0, %d]", left, right, size), ErrInvalidRange)
	return e.WithContext("left", left).WithContext("right", right).WithContext("size", size)
}

// InvalidInput 返回带说明的输入错误，Cause 为 ErrInvalidInput。
func InvalidInput(format string, args ...any) *Error {
	return New(ErrInvalidArg, ErrInvalidInput.Code, ErrInvalidInput.Message, fmt.Sprintf(format, args...), ErrInvalidInput)
}

// UnknownOperation 返回未知运算错误，Cause 为 ErrUnknownOperation。
func UnknownOperation(name string) *Error {
	e := New(ErrInvalidArg, ErrUnknownOperation.Code, ErrUnknownOperation.Message, fmt.Sprintf("operation %q", name), ErrUnknownOperation)
	return e.WithContext("operation", name)
}
