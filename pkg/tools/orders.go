package tools

import (
	"slices"
	"sync"
)

// Order is the record returned by the order lookup.
type Order struct {
	OrderID      string   `json:"order_id"`
	Status       string   `json:"status"`
	Items        []string `json:"items"`
	DeliveryDate string   `json:"delivery_date"`
}

// OrderStore is a read-only in-memory order database.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewOrderStore creates a store holding orders, keyed by OrderID.
func NewOrderStore(orders ...Order) *OrderStore {
	s := &OrderStore{orders: make(map[string]Order, len(orders))}
	for _, o := range orders {
		o.Items = slices.Clone(o.Items)
		s.orders[o.OrderID] = o
	}
	return s
}

// DefaultOrders returns the demo data set.
func DefaultOrders() []Order {
	return []Order{
		{OrderID: "123", Status: "Shipped", Items: []string{"Laptop", "Mouse"}, DeliveryDate: "2025-12-12"},
		{OrderID: "456", Status: "Processing", Items: []string{"Monitor"}, DeliveryDate: "2025-12-20"},
		{OrderID: "789", Status: "Delivered", Items: []string{"Keyboard"}, DeliveryDate: "2025-11-25"},
	}
}

// NewDefaultOrderStore creates a store seeded with DefaultOrders.
func NewDefaultOrderStore() *OrderStore {
	return NewOrderStore(DefaultOrders()...)
}

// Lookup returns a copy of the order with the given id.
func (s *OrderStore) Lookup(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if ok {
		o.Items = slices.Clone(o.Items)
	}
	return o, ok
}
