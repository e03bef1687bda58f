package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flowplatform/flow_backend/models"
)

func TestDispatchCycleWithoutSenderIsNoop(t *testing.T) {
	// No sender means nothing to deliver; the cycle must bail out before
	// touching the lock or any tenant database.
	d := &NotificationDispatcher{WorkerID: "test-worker"}
	d.dispatchCycle(context.Background())
}

func TestRenderNotificationBody(t *testing.T) {
	payload, err := json.Marshal(models.EntityEvent{
		Action:      models.EventActionPostUpdate,
		EntityType:  models.EntityTypeOrder,
		EntityId:    "11111111-1111-1111-1111-111111111111",
		DisplayName: "PO-1042 <script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record := &models.NotificationRecord{
		Subject:    "Order updated",
		EntityType: models.EntityTypeOrder,
		EntityId:   "11111111-1111-1111-1111-111111111111",
		Payload:    payload,
	}

	body := renderNotificationBody(record)
	if !strings.Contains(body, "PO-1042 &lt;script&gt;") {
		t.Errorf("expected escaped display name in body, got %q", body)
	}
	if strings.Contains(body, "<script>") {
		t.Errorf("expected payload html to be escaped, got %q", body)
	}

	// A payload that fails to decode falls back to the entity id.
	record.Payload = []byte("not json")
	body = renderNotificationBody(record)
	if !strings.Contains(body, record.EntityId) {
		t.Errorf("expected entity id fallback in body, got %q", body)
	}
}
