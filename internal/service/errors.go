package service

import "fmt"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	BusErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		BusErr.Details[detail.Key] = detail.Payload
	}

	return BusErr
}

func NewNotFound(resource string, id string) *BusinessError {
	return &BusinessError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewDefaultCategoryError(id string) *BusinessError {
	return &BusinessError{
		Code:    "DEFAULT_CATEGORY",
		Message: "Встроенную категорию нельзя удалить",
		Details: map[string]any{
			"id": id,
		},
	}
}

func NewImportError(reason string) *BusinessError {
	return &BusinessError{
		Code:    "IMPORT_ERROR",
		Message: fmt.Sprintf("Импорт отклонён: %s", reason),
		Details: map[string]any{
			"reason": reason,
		},
	}
}

func NewStorageError(op string, err error) *BusinessError {
	return &BusinessError{
		Code:    "STORAGE_ERROR",
		Message: fmt.Sprintf("Ошибка хранилища при операции '%s'", op),
		Details: map[string]any{
			"operation": op,
		},
		Err: err,
	}
}

func NewAIError(err error) *BusinessError {
	return &BusinessError{
		Code:    "AI_ERROR",
		Message: "Сервис подсказок недоступен",
		Err:     err,
	}
}
