package model

import "errors"

var (
	// ErrUnauthenticated возвращается, если токен отсутствует, просрочен или пользователь удалён.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden возвращается, если роли пользователя недостаточно для операции.
	ErrForbidden = errors.New("access denied")
	// ErrNotFound возвращается, если запрошенная сущность не найдена.
	ErrNotFound = errors.New("not found")
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientFunds возвращается, если на балансе недостаточно средств.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAlreadyProcessed возвращается при повторной обработке заявки на пополнение.
	ErrAlreadyProcessed = errors.New("request already processed")
	// ErrUserExists возвращается при регистрации с уже занятым email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidMFACode возвращается при неверном одноразовом коде.
	ErrInvalidMFACode = errors.New("invalid mfa code")
	// ErrInvalidTransition возвращается при недопустимой смене статуса заказа.
	ErrInvalidTransition = errors.New("invalid status transition")
)
