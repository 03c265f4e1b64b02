package recorder

import (
	"errors"
	"fmt"
)

// RecorderErrorCode определяет типизированные коды ошибок рекордера.
// Позволяет классифицировать ошибки по категориям (валидация, состояние,
// ввод-вывод) и обрабатывать их соответствующим образом через errors.Is.
type RecorderErrorCode int

const (
	// Ошибки валидации - фатальны для создания, объект не возвращается
	ErrorCodeCodecMissing RecorderErrorCode = iota + 2000
	ErrorCodeCodecUnsupported
	ErrorCodeInvalidArgument
	ErrorCodePathProtected

	// Ошибки состояния - операция недопустима в текущей фазе жизненного
	// цикла, рекордер остается работоспособным
	ErrorCodeHeaderWritten
	ErrorCodeAlreadyPaused
	ErrorCodeNotPaused
	ErrorCodeNotWritable
	ErrorCodePaused
	ErrorCodeAlreadyClosed

	// Ошибки ввода-вывода
	ErrorCodeDirectoryFailed
	ErrorCodeFileCreateFailed
	ErrorCodeMagicWriteFailed
	ErrorCodeInfoEncodeFailed
	ErrorCodeFrameWriteFailed
	ErrorCodeFileClosed
)

// String возвращает строковое представление кода ошибки
func (code RecorderErrorCode) String() string {
	switch code {
	case ErrorCodeCodecMissing:
		return "CodecMissing"
	case ErrorCodeCodecUnsupported:
		return "CodecUnsupported"
	case ErrorCodeInvalidArgument:
		return "InvalidArgument"
	case ErrorCodePathProtected:
		return "PathProtected"
	case ErrorCodeHeaderWritten:
		return "HeaderWritten"
	case ErrorCodeAlreadyPaused:
		return "AlreadyPaused"
	case ErrorCodeNotPaused:
		return "NotPaused"
	case ErrorCodeNotWritable:
		return "NotWritable"
	case ErrorCodePaused:
		return "Paused"
	case ErrorCodeAlreadyClosed:
		return "AlreadyClosed"
	case ErrorCodeDirectoryFailed:
		return "DirectoryFailed"
	case ErrorCodeFileCreateFailed:
		return "FileCreateFailed"
	case ErrorCodeMagicWriteFailed:
		return "MagicWriteFailed"
	case ErrorCodeInfoEncodeFailed:
		return "InfoEncodeFailed"
	case ErrorCodeFrameWriteFailed:
		return "FrameWriteFailed"
	case ErrorCodeFileClosed:
		return "FileClosed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// RecorderError базовая структура ошибок рекордера.
// Предоставляет расширенную информацию об ошибке включая:
//   - Типизированный код ошибки
//   - Имя файла записи для сопоставления с логами
//   - Возможность обертывания других ошибок
type RecorderError struct {
	Code     RecorderErrorCode
	Message  string
	Filename string
	Wrapped  error
}

// Error реализует интерфейс error, возвращая форматированное сообщение.
func (e *RecorderError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("[recorder:%s] %s: %s", e.Code, e.Filename, e.Message)
	}
	return fmt.Sprintf("[recorder:%s] %s", e.Code, e.Message)
}

// Unwrap возвращает обернутую ошибку, поддерживая errors.Unwrap.
func (e *RecorderError) Unwrap() error {
	return e.Wrapped
}

// Is поддерживает errors.Is, позволяя сравнивать ошибки по коду.
func (e *RecorderError) Is(target error) bool {
	if t, ok := target.(*RecorderError); ok {
		return e.Code == t.Code
	}
	return false
}

// newError создает ошибку рекордера с заданным кодом.
func newError(code RecorderErrorCode, filename, message string) *RecorderError {
	return &RecorderError{Code: code, Message: message, Filename: filename}
}

// wrapError оборачивает существующую ошибку в RecorderError.
func wrapError(code RecorderErrorCode, filename, message string, err error) *RecorderError {
	return &RecorderError{Code: code, Message: message, Filename: filename, Wrapped: err}
}

// HasErrorCode проверяет, содержит ли цепочка ошибок указанный код
func HasErrorCode(err error, code RecorderErrorCode) bool {
	var recErr *RecorderError
	if AsRecorderError(err, &recErr) {
		return recErr.Code == code
	}
	return false
}

// AsRecorderError пытается найти RecorderError в цепочке ошибок
func AsRecorderError(err error, target **RecorderError) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}
