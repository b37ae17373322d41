package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusShipped},
		OrderStatusShipped:   {OrderStatusDelivered},
	}

	for _, from := range validOrderStatuses {
		for _, to := range validOrderStatuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatalf("pending must not be terminal")
	}
}

func TestParseUserRole(t *testing.T) {
	if role, err := ParseUserRole("seller"); err != nil || role != UserRoleSeller {
		t.Fatalf("expected seller, got %q err=%v", role, err)
	}
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseOrderPartyDefaultsToAny(t *testing.T) {
	party, err := ParseOrderParty("")
	if err != nil || party != OrderPartyAny {
		t.Fatalf("expected any, got %q err=%v", party, err)
	}
	if _, err := ParseOrderParty("courier"); err == nil {
		t.Fatalf("expected error for unknown party")
	}
}
