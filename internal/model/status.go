package model

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  nil,
	OrderStatusCancelled:  nil,
}

// Valid сообщает, является ли статус заказа одним из известных.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransition проверяет допустимость перехода. Переход в тот же статус разрешён и ничего не меняет.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if !to.Valid() {
		return false
	}
	if s == to {
		return true
	}
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
