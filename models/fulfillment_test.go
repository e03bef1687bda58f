package models

import "testing"

func TestCanTransition_LegalEdges(t *testing.T) {
	cases := []struct {
		from    FulfillmentStatus
		to      FulfillmentStatus
		allowed bool
	}{
		{FulfillmentStatusPending, FulfillmentStatusReleased, true},
		{FulfillmentStatusReleased, FulfillmentStatusPicking, true},
		{FulfillmentStatusPicking, FulfillmentStatusPacking, true},
		{FulfillmentStatusPicking, FulfillmentStatusBackorderReview, true},
		{FulfillmentStatusBackorderReview, FulfillmentStatusPicking, true},
		{FulfillmentStatusPacking, FulfillmentStatusShipping, true},
		{FulfillmentStatusShipping, FulfillmentStatusShipped, true},
		{FulfillmentStatusShipped, FulfillmentStatusCommunicated, true},
		{FulfillmentStatusShipped, FulfillmentStatusDelivered, true},
		{FulfillmentStatusCommunicated, FulfillmentStatusDelivered, true},

		// skipping steps is never legal
		{FulfillmentStatusPending, FulfillmentStatusPicking, false},
		{FulfillmentStatusReleased, FulfillmentStatusPacking, false},
		{FulfillmentStatusPicking, FulfillmentStatusShipped, false},
		{FulfillmentStatusPacking, FulfillmentStatusShipped, false},
		{FulfillmentStatusCommunicated, FulfillmentStatusShipped, false},

		// no going backwards except the backorder loop
		{FulfillmentStatusPacking, FulfillmentStatusPicking, false},
		{FulfillmentStatusShipped, FulfillmentStatusShipping, false},
		{FulfillmentStatusBackorderReview, FulfillmentStatusPacking, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, expected %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestCanTransition_Cancel(t *testing.T) {
	cancellable := []FulfillmentStatus{
		FulfillmentStatusPending, FulfillmentStatusReleased, FulfillmentStatusPicking,
		FulfillmentStatusBackorderReview, FulfillmentStatusPacking, FulfillmentStatusShipping,
		FulfillmentStatusShipped, FulfillmentStatusCommunicated,
	}
	for _, from := range cancellable {
		if !CanTransition(from, FulfillmentStatusCancelled) {
			t.Errorf("expected %s to be cancellable", from)
		}
	}
	for _, from := range []FulfillmentStatus{FulfillmentStatusDelivered, FulfillmentStatusCancelled} {
		if CanTransition(from, FulfillmentStatusCancelled) {
			t.Errorf("expected terminal state %s not to be cancellable", from)
		}
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	all := []FulfillmentStatus{
		FulfillmentStatusPending, FulfillmentStatusReleased, FulfillmentStatusPicking,
		FulfillmentStatusBackorderReview, FulfillmentStatusPacking, FulfillmentStatusShipping,
		FulfillmentStatusShipped, FulfillmentStatusCommunicated, FulfillmentStatusDelivered,
		FulfillmentStatusCancelled,
	}
	for _, from := range []FulfillmentStatus{FulfillmentStatusDelivered, FulfillmentStatusCancelled} {
		if !from.IsTerminal() {
			t.Errorf("expected %s to be terminal", from)
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}
}

func TestRequireStatus(t *testing.T) {
	fo := &FulfillmentOrder{Status: FulfillmentStatusPicking}
	if err := fo.requireStatus(FulfillmentStatusPicking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fo.requireStatus(FulfillmentStatusShipped, FulfillmentStatusCommunicated); err == nil {
		t.Fatal("expected error for wrong status")
	}
}
