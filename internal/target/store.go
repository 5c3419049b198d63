// Package target provides a small in-memory users/products/orders API that
// mixload can be pointed at. It mirrors the REST surface of the services the
// default scenario mix was written for, including the gateway's 503 fallback.
package target

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientStock is returned when an order asks for more than is in stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidStatus is returned for an unknown order status.
	ErrInvalidStatus = errors.New("invalid order status")
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus parses a status case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" binding:"required"`
	Email       string    `json:"email" binding:"required,email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name" binding:"required"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price" binding:"gt=0"`
	StockQuantity int       `json:"stockQuantity" binding:"gte=0"`
	Category      string    `json:"category,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type OrderItem struct {
	ProductID int64   `json:"productId" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"userId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	UserID int64       `json:"userId" binding:"required"`
	Items  []OrderItem `json:"items" binding:"required,min=1,dive"`
}

// Store holds all entities in memory. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	users    map[int64]*User
	emails   map[string]int64
	products map[int64]*Product
	orders   map[int64]*Order

	nextUserID    int64
	nextProductID int64
	nextOrderID   int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*User),
		emails:   make(map[string]int64),
		products: make(map[int64]*Product),
		orders:   make(map[int64]*Order),
	}
}

// Seed adds users and products with predictable fields so that orders
// referencing ids 1..n can succeed.
func (s *Store) Seed(users, products int) {
	categories := []string{"Electronics", "Clothing", "Books", "Food"}

	for i := 1; i <= users; i++ {
		_, _ = s.CreateUser(User{
			Name:        fmt.Sprintf("Seed User %d", i),
			Email:       fmt.Sprintf("seed%d@example.com", i),
			PhoneNumber: fmt.Sprintf("+90555000%04d", i),
		})
	}
	for i := 1; i <= products; i++ {
		_, _ = s.CreateProduct(Product{
			Name:          fmt.Sprintf("Seed Product %d", i),
			Description:   "Seeded product",
			Price:         float64(10 * i),
			StockQuantity: 1000000,
			Category:      categories[(i-1)%len(categories)],
		})
	}
}

// CreateUser stores u. Emails are unique (case-insensitive).
func (s *Store) CreateUser(u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.emails[key]; exists {
		return User{}, fmt.Errorf("%w: user with email %s already exists", ErrConflict, u.Email)
	}

	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = &u
	s.emails[key] = u.ID
	return u, nil
}

// GetUser returns the user with id.
func (s *Store) GetUser(id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return *u, nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateProduct stores p.
func (s *Store) CreateProduct(p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	p.ID = s.nextProductID
	p.CreatedAt = time.Now().UTC()
	s.products[p.ID] = &p
	return p, nil
}

// GetProduct returns the product with id.
func (s *Store) GetProduct(id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return *p, nil
}

// ListProducts returns all products ordered by id, optionally filtered by
// category (case-insensitive).
func (s *Store) ListProducts(category string) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReduceStock takes quantity units of product id out of stock.
func (s *Store) ReduceStock(id int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if p.StockQuantity < quantity {
		return fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, id, p.StockQuantity, quantity)
	}
	p.StockQuantity -= quantity
	return nil
}

// CreateOrder validates the user and every item, reserves stock for all
// items at once and stores a confirmed order.
func (s *Store) CreateOrder(req CreateOrderRequest) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.UserID]; !ok {
		return Order{}, fmt.Errorf("%w: user %d", ErrNotFound, req.UserID)
	}

	// Sum per product first so repeated items are checked together
	wanted := make(map[int64]int)
	for _, item := range req.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return Order{}, fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
	}
	for id, qty := range wanted {
		if p := s.products[id]; p.StockQuantity < qty {
			return Order{}, fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, id, p.StockQuantity, qty)
		}
	}

	order := Order{
		UserID:    req.UserID,
		Items:     make([]OrderItem, 0, len(req.Items)),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	for _, item := range req.Items {
		p := s.products[item.ProductID]
		p.StockQuantity -= item.Quantity
		item.Price = p.Price
		order.Items = append(order.Items, item)
		order.TotalAmount += p.Price * float64(item.Quantity)
	}
	order.Status = StatusConfirmed

	s.nextOrderID++
	order.ID = s.nextOrderID
	s.orders[order.ID] = &order
	return order, nil
}

// GetOrder returns the order with id.
func (s *Store) GetOrder(id int64) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return *o, nil
}

// ListOrders returns all orders ordered by id. A userID above zero limits
// the result to that user's orders.
func (s *Store) ListOrders(userID int64) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if userID > 0 && o.UserID != userID {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateOrderStatus sets the status of order id.
func (s *Store) UpdateOrderStatus(id int64, status OrderStatus) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	o.Status = status
	return *o, nil
}

// Counts returns the number of users, products and orders.
func (s *Store) Counts() (users, products, orders int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.products), len(s.orders)
}
