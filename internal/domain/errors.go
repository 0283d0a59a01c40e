package domain

import "errors"

// ErrorKind задаёт класс ошибки, по нему транспортный слой выбирает ответ
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindCapacity      ErrorKind = "capacity"
	KindAuthorization ErrorKind = "authorization"
	KindInternal      ErrorKind = "internal"
)

// Error описывает ожидаемый бизнес-исход со стабильным машинным кодом
type Error struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is сравнивает доменные ошибки по коду, сообщение может уточняться
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func newError(code string, kind ErrorKind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

var (
	ErrInvalidInput = newError("INVALID_INPUT", KindValidation, "invalid input")

	ErrParentNotFound  = newError("PARENT_NOT_FOUND", KindNotFound, "parent folder not found")
	ErrFolderNotFound  = newError("FOLDER_NOT_FOUND", KindNotFound, "folder not found")
	ErrFileNotFound    = newError("FILE_NOT_FOUND", KindNotFound, "file not found")
	ErrPackageNotFound = newError("PACKAGE_NOT_FOUND", KindNotFound, "subscription package not found")

	ErrPackageConflict = newError("PACKAGE_CONFLICT", KindConflict, "package name or slug already exists")

	ErrFileTooLargeForPackage = newError("FILE_TOO_LARGE_FOR_PACKAGE", KindCapacity, "file exceeds the maximum size allowed by your package")
	ErrMimeTypeNotAllowed     = newError("MIME_TYPE_NOT_ALLOWED", KindCapacity, "this file type is not allowed for your subscription package")
	ErrTotalFileLimitReached  = newError("TOTAL_FILE_LIMIT_REACHED", KindCapacity, "you have reached the total file limit for your subscription package")
	ErrFolderFileLimitReached = newError("FOLDER_FILE_LIMIT_REACHED", KindCapacity, "you have reached the maximum number of files allowed in this folder")
	ErrFolderLimitReached     = newError("FOLDER_LIMIT_REACHED", KindCapacity, "you have reached the folder limit for your subscription package")
	ErrNestingLimitExceeded   = newError("NESTING_LIMIT_EXCEEDED", KindCapacity, "folder nesting level exceeds your subscription package")

	ErrSubscriptionRequired = newError("SUBSCRIPTION_REQUIRED", KindAuthorization, "an active subscription is required")
	ErrAuthRequired         = newError("AUTH_REQUIRED", KindAuthorization, "authentication required")
	ErrForbidden            = newError("FORBIDDEN", KindAuthorization, "you do not have permission to perform this action")
)

// AsError достаёт доменную ошибку из цепочки; для всего остального ok == false
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// InvalidInput возвращает ошибку валидации с уточнённым сообщением
func InvalidInput(message string) error {
	return newError(ErrInvalidInput.Code, KindValidation, message)
}
