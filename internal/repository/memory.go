package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/laundryhub/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется без настроенной БД и в тестах.
// Все операции выполняются под одним мьютексом, поэтому составные операции атомарны.
type MemoryRepository struct {
	mu sync.Mutex

	seq      int64
	users    map[int64]*model.User
	services map[int64]*model.Service
	orders   map[int64]*model.Order
	funds    map[int64]*model.FundRequest

	now func() time.Time
}

// NewMemoryRepository создаёт пустое in-memory хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[int64]*model.User),
		services: make(map[int64]*model.Service),
		orders:   make(map[int64]*model.Order),
		funds:    make(map[int64]*model.FundRequest),
		now:      time.Now,
	}
}

func (m *MemoryRepository) nextID() int64 {
	m.seq++
	return m.seq
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error { return nil }

// Ping всегда успешен.
func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) ref(userID int64) *model.UserRef {
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	return &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// CreateUser создаёт нового пользователя.
func (m *MemoryRepository) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("%w: %s", model.ErrUserExists, u.Email)
		}
	}

	u.ID = m.nextID()
	u.CreatedAt = m.now()
	stored := u
	m.users[u.ID] = &stored
	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (m *MemoryRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail возвращает пользователя по email.
func (m *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, model.ErrNotFound)
}

// ListUsers возвращает всех пользователей в порядке регистрации.
func (m *MemoryRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// DeleteUser удаляет пользователя без каскада.
func (m *MemoryRepository) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

// UpdateUserRole меняет роль пользователя.
func (m *MemoryRepository) UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

// SetMFASecret сохраняет секрет TOTP.
func (m *MemoryRepository) SetMFASecret(ctx context.Context, id int64, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	u.MFASecret = secret
	return nil
}

// EnableMFA включает двухфакторную аутентификацию.
func (m *MemoryRepository) EnableMFA(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	u.MFAEnabled = true
	return nil
}

// TryDebit атомарно списывает amount, если баланс останется неотрицательным.
func (m *MemoryRepository) TryDebit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tryDebit(userID, amount)
}

func (m *MemoryRepository) tryDebit(userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := m.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}
	if u.WalletBalance.LessThan(amount) {
		return u.WalletBalance, model.ErrInsufficientFunds
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	return u.WalletBalance, nil
}

// CreateService сохраняет новую услугу.
func (m *MemoryRepository) CreateService(ctx context.Context, s model.Service) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.nextID()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	stored := s
	m.services[s.ID] = &stored
	return &s, nil
}

// GetService возвращает услугу по идентификатору.
func (m *MemoryRepository) GetService(ctx context.Context, id int64) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.services[id]
	if !ok {
		return nil, fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

// ListServices возвращает все услуги, новые первыми.
func (m *MemoryRepository) ListServices(ctx context.Context) ([]model.ServiceListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]model.ServiceListing, 0, len(m.services))
	for _, s := range m.services {
		res = append(res, model.ServiceListing{Service: *s, Provider: m.ref(s.ProviderID)})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// UpdateService обновляет непустые поля услуги.
func (m *MemoryRepository) UpdateService(ctx context.Context, id int64, upd model.ServiceUpdate) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.services[id]
	if !ok {
		return nil, fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}
	if upd.Name != "" {
		s.Name = upd.Name
	}
	if upd.Description != "" {
		s.Description = upd.Description
	}
	if upd.Price != nil {
		s.Price = *upd.Price
	}
	s.UpdatedAt = m.now()
	cp := *s
	return &cp, nil
}

// DeleteService удаляет услугу без каскада.
func (m *MemoryRepository) DeleteService(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.services[id]; !ok {
		return fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}
	delete(m.services, id)
	return nil
}

// Checkout атомарно списывает стоимость найденных услуг и создаёт заказы.
func (m *MemoryRepository) Checkout(ctx context.Context, userID int64, serviceIDs []int64) (*model.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
	}

	res := &model.CheckoutResult{Total: decimal.Zero}
	var resolved []int64
	for _, id := range serviceIDs {
		s, ok := m.services[id]
		if !ok {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.Total = res.Total.Add(s.Price)
		resolved = append(resolved, id)
	}

	if len(resolved) == 0 {
		res.NewBalance = u.WalletBalance
		return res, nil
	}

	balance, err := m.tryDebit(userID, res.Total)
	if err != nil {
		return nil, err
	}
	res.NewBalance = balance

	now := m.now()
	for _, serviceID := range resolved {
		o := model.Order{
			ID:        m.nextID(),
			UserID:    userID,
			ServiceID: serviceID,
			Status:    model.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		stored := o
		m.orders[o.ID] = &stored
		res.Orders = append(res.Orders, o)
	}

	return res, nil
}

// GetOrder возвращает заказ по идентификатору.
func (m *MemoryRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, model.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (m *MemoryRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.OrderView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.orderViews(func(o *model.Order) bool { return o.UserID == userID }), nil
}

// ListOrders возвращает все заказы, новые первыми.
func (m *MemoryRepository) ListOrders(ctx context.Context) ([]model.OrderView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.orderViews(func(*model.Order) bool { return true }), nil
}

func (m *MemoryRepository) orderViews(keep func(*model.Order) bool) []model.OrderView {
	var res []model.OrderView
	for _, o := range m.orders {
		if !keep(o) {
			continue
		}
		v := model.OrderView{Order: *o, User: m.ref(o.UserID)}
		if s, ok := m.services[o.ServiceID]; ok {
			cp := *s
			v.Service = &cp
		}
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res
}

// UpdateOrderStatus меняет статус заказа, только если текущий статус равен from.
func (m *MemoryRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, model.ErrNotFound)
	}
	if o.Status != from {
		return nil, fmt.Errorf("order %d changed concurrently: %w", id, model.ErrInvalidTransition)
	}
	o.Status = to
	o.UpdatedAt = m.now()
	cp := *o
	return &cp, nil
}

// DeleteOrder удаляет заказ.
func (m *MemoryRepository) DeleteOrder(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("order %d: %w", id, model.ErrNotFound)
	}
	delete(m.orders, id)
	return nil
}

// CreateFundRequest создаёт заявку на пополнение.
func (m *MemoryRepository) CreateFundRequest(ctx context.Context, userID int64, amount decimal.Decimal) (*model.FundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	fr := model.FundRequest{
		ID:        m.nextID(),
		UserID:    userID,
		Amount:    amount,
		Status:    model.FundRequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored := fr
	m.funds[fr.ID] = &stored
	return &fr, nil
}

// ListFundRequestsByUser возвращает заявки пользователя, новые первыми.
func (m *MemoryRepository) ListFundRequestsByUser(ctx context.Context, userID int64) ([]model.FundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.FundRequest
	for _, fr := range m.funds {
		if fr.UserID == userID {
			res = append(res, *fr)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ListPendingFundRequests возвращает необработанные заявки, новые первыми.
func (m *MemoryRepository) ListPendingFundRequests(ctx context.Context) ([]model.FundRequestView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.FundRequestView
	for _, fr := range m.funds {
		if fr.Status == model.FundRequestPending {
			res = append(res, model.FundRequestView{FundRequest: *fr, User: m.ref(fr.UserID)})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ApproveFundRequest одобряет заявку и зачисляет сумму автору, если он существует.
func (m *MemoryRepository) ApproveFundRequest(ctx context.Context, id int64) (*model.FundRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fr, err := m.resolveFundRequest(id, model.FundRequestApproved)
	if err != nil {
		return nil, false, err
	}

	u, ok := m.users[fr.UserID]
	if !ok {
		return fr, false, nil
	}
	u.WalletBalance = u.WalletBalance.Add(fr.Amount)
	return fr, true, nil
}

// RejectFundRequest отклоняет заявку.
func (m *MemoryRepository) RejectFundRequest(ctx context.Context, id int64) (*model.FundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resolveFundRequest(id, model.FundRequestRejected)
}

func (m *MemoryRepository) resolveFundRequest(id int64, to model.FundRequestStatus) (*model.FundRequest, error) {
	fr, ok := m.funds[id]
	if !ok {
		return nil, fmt.Errorf("fund request %d: %w", id, model.ErrNotFound)
	}
	if fr.Status != model.FundRequestPending {
		return nil, fmt.Errorf("fund request %d is %s: %w", id, fr.Status, model.ErrAlreadyProcessed)
	}
	fr.Status = to
	fr.UpdatedAt = m.now()
	cp := *fr
	return &cp, nil
}
