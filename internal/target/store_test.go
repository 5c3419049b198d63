package target

import (
	"errors"
	"sync"
	"testing"
)

func TestStore_ConcurrentOrdersNeverOversell(t *testing.T) {
	s := NewStore()
	s.Seed(1, 0)
	p, _ := s.CreateProduct(Product{Name: "Limited", Price: 5, StockQuantity: 10})

	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmed, rejected := 0, 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateOrder(CreateOrderRequest{
				UserID: 1,
				Items:  []OrderItem{{ProductID: p.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				confirmed++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if confirmed != 10 || rejected != 40 {
		t.Errorf("confirmed=%d rejected=%d, want 10/40", confirmed, rejected)
	}
	got, _ := s.GetProduct(p.ID)
	if got.StockQuantity != 0 {
		t.Errorf("stock = %d, want 0", got.StockQuantity)
	}
}

func TestStore_FailedOrderKeepsStock(t *testing.T) {
	s := NewStore()
	s.Seed(1, 2)

	_, err := s.CreateOrder(CreateOrderRequest{
		UserID: 1,
		Items: []OrderItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 3, Quantity: 1},
		},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	p, _ := s.GetProduct(1)
	if p.StockQuantity != 1000000 {
		t.Errorf("stock = %d, want untouched", p.StockQuantity)
	}
	if _, _, orders := s.Counts(); orders != 0 {
		t.Errorf("orders = %d, want 0", orders)
	}
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderStatus
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{" Delivered ", StatusDelivered, false},
		{"CANCELLED", StatusCancelled, false},
		{"lost", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOrderStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrderStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrderStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
