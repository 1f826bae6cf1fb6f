// Package model содержит доменные сущности маркетплейса прачечных услуг.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultWalletBalance задаёт стартовый баланс кошелька нового пользователя.
var DefaultWalletBalance = decimal.NewFromInt(50)

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleServiceProvider Role = "service_provider"
	RoleUser            Role = "user"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleServiceProvider, RoleUser:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя.
type User struct {
	ID            int64
	Name          string
	Email         string
	PasswordHash  []byte
	Role          Role
	WalletBalance decimal.Decimal
	MFASecret     string
	MFAEnabled    bool
	CreatedAt     time.Time
}

// UserRef содержит краткую информацию о пользователе, на которого ссылается другая сущность.
type UserRef struct {
	ID    int64  `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Service описывает услугу, выставленную исполнителем.
type Service struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ProviderID  int64
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ServiceListing описывает услугу вместе с данными исполнителя. Provider равен nil, если исполнитель удалён.
type ServiceListing struct {
	Service
	Provider *UserRef
}

// ServiceUpdate содержит изменяемые поля услуги. Пустые поля не меняют текущее значение.
type ServiceUpdate struct {
	Name        string
	Description string
	Price       *decimal.Decimal
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order описывает заказ пользователя. Цена в заказе не хранится и берётся из услуги при чтении.
type Order struct {
	ID        int64
	UserID    int64
	ServiceID int64
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderView описывает заказ с разрешёнными ссылками. Service и User равны nil, если сущность удалена.
type OrderView struct {
	Order
	Service *Service
	User    *UserRef
}

// FundRequestStatus описывает статус заявки на пополнение.
type FundRequestStatus string

const (
	FundRequestPending  FundRequestStatus = "pending"
	FundRequestApproved FundRequestStatus = "approved"
	FundRequestRejected FundRequestStatus = "rejected"
)

// FundRequest описывает заявку пользователя на пополнение кошелька.
type FundRequest struct {
	ID        int64
	UserID    int64
	Amount    decimal.Decimal
	Status    FundRequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FundRequestView описывает заявку вместе с данными автора. User равен nil, если автор удалён.
type FundRequestView struct {
	FundRequest
	User *UserRef
}

// CheckoutResult содержит итог оформления корзины.
type CheckoutResult struct {
	Orders     []Order
	Total      decimal.Decimal
	NewBalance decimal.Decimal
	// Идентификаторы услуг из корзины, которые не удалось найти.
	Dropped []int64
}
