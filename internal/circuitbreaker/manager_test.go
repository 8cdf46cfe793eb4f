package circuitbreaker

import (
	"context"
	"testing"
	"time"
)

func TestManager(t *testing.T) {
	manager := NewManager(Config{
		MaxFailures: 2,
		Timeout:     time.Minute,
		MaxRequests: 1,
	}, quietLogger())

	users := manager.For("users")
	if users == nil {
		t.Fatal("Expected circuit breaker, got nil")
	}
	if users.Name() != "users" {
		t.Errorf("Expected breaker named users, got %q", users.Name())
	}
	if manager.For("users") != users {
		t.Error("Expected same circuit breaker instance")
	}

	orders := manager.For("orders")
	if orders == users {
		t.Error("Expected different circuit breaker instances")
	}

	if manager.Get("drivers") != nil {
		t.Error("Expected nil for a collection never requested")
	}

	orders.Execute(context.Background(), failing)
	orders.Execute(context.Background(), failing)
	if orders.State() != StateOpen {
		t.Fatalf("Expected orders breaker open, got %s", orders.State())
	}
	if users.State() != StateClosed {
		t.Errorf("Breakers must be independent, users is %s", users.State())
	}

	metrics := manager.AllMetrics()
	if len(metrics) != 2 {
		t.Fatalf("Expected 2 metric entries, got %d", len(metrics))
	}
	if metrics[0].Name != "orders" || metrics[1].Name != "users" {
		t.Errorf("Expected metrics sorted by name, got %s, %s", metrics[0].Name, metrics[1].Name)
	}

	if !manager.Reset("orders") {
		t.Error("Expected reset of known breaker to succeed")
	}
	if manager.Reset("unknown") {
		t.Error("Expected reset of unknown breaker to fail")
	}
	if orders.State() != StateClosed {
		t.Errorf("Expected orders closed after reset, got %s", orders.State())
	}

	orders.Execute(context.Background(), failing)
	orders.Execute(context.Background(), failing)
	manager.ResetAll()
	if orders.State() != StateClosed {
		t.Errorf("Expected closed after ResetAll, got %s", orders.State())
	}
}
