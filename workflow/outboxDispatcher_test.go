package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/testutil"
	"github.com/mmdatafocus/workorder_backend/workflow"
	"github.com/sirupsen/logrus"
)

func TestRetryBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{4, 40 * time.Second},
		{30, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := workflow.RetryBackoff(5*time.Second, tc.attempt); got != tc.want {
			t.Errorf("RetryBackoff(5s, %d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func newDispatcher(publish workflow.PublishFunc) *workflow.OutboxDispatcher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	d := workflow.NewOutboxDispatcher(config.GetDB(), logger)
	d.Publish = publish
	return d
}

func loadEvents(t *testing.T) []models.WorkOrderEventRecord {
	t.Helper()
	var records []models.WorkOrderEventRecord
	if err := config.GetDB().Order("id").Find(&records).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	return records
}

func TestDispatchOnce_PublishesCommittedEvents(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	var published []config.WorkOrderEventMessage
	d := newDispatcher(func(ctx context.Context, msg config.WorkOrderEventMessage) (string, error) {
		published = append(published, msg)
		return "msg-" + msg.EventType, nil
	})

	if n := d.DispatchOnce(context.Background()); n != 2 {
		t.Fatalf("claimed = %d, want 2", n)
	}
	if len(published) != 2 {
		t.Fatalf("published = %d", len(published))
	}
	if published[0].EventType != string(models.WorkOrderEventCreated) || published[1].EventType != string(models.WorkOrderEventStatusChanged) {
		t.Fatalf("event order = %s, %s", published[0].EventType, published[1].EventType)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(published[1].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["to_status"] != string(models.EngineeringStatusApproved) || published[1].WorkOrderId != wo.ID {
		t.Fatalf("payload = %v", payload)
	}
	for _, r := range loadEvents(t) {
		if r.PublishStatus != models.OutboxPublishStatusSent || r.PubSubMessageId == nil {
			t.Fatalf("record %d: status=%s message=%v", r.ID, r.PublishStatus, r.PubSubMessageId)
		}
	}
	if n := d.DispatchOnce(context.Background()); n != 0 {
		t.Fatalf("second pass claimed %d", n)
	}
}

func TestDispatchOnce_FailureSchedulesRetryThenDead(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	if _, err := models.CreateWorkOrder(testutil.AdminContext(), &models.NewWorkOrder{SalesOrderId: f.SalesOrder.ID}); err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}

	d := newDispatcher(func(ctx context.Context, msg config.WorkOrderEventMessage) (string, error) {
		return "", errors.New("broker down")
	})
	d.MaxAttempts = 2
	d.InitialBackoff = 0

	d.DispatchOnce(context.Background())
	records := loadEvents(t)
	if len(records) != 1 || records[0].PublishStatus != models.OutboxPublishStatusFailed || records[0].PublishAttempts != 1 {
		t.Fatalf("after first failure: %+v", records)
	}
	if records[0].LastPublishError == nil || *records[0].LastPublishError != "broker down" {
		t.Fatalf("last error = %v", records[0].LastPublishError)
	}

	d.DispatchOnce(context.Background())
	records = loadEvents(t)
	if records[0].PublishStatus != models.OutboxPublishStatusDead {
		t.Fatalf("after max attempts: status=%s attempts=%d", records[0].PublishStatus, records[0].PublishAttempts)
	}

	if _, err := models.ReplayWorkOrderEvent(testutil.ActorContext(9, models.UserRoleInventory), records[0].ID); err == nil {
		t.Fatal("replay by non-admin must fail")
	}
	replayed, err := models.ReplayWorkOrderEvent(testutil.AdminContext(), records[0].ID)
	if err != nil {
		t.Fatalf("ReplayWorkOrderEvent: %v", err)
	}
	if replayed.PublishStatus != models.OutboxPublishStatusFailed || replayed.PublishAttempts != 0 {
		t.Fatalf("replayed = %+v", replayed)
	}

	d.Publish = func(ctx context.Context, msg config.WorkOrderEventMessage) (string, error) {
		return "ok", nil
	}
	if n := d.DispatchOnce(context.Background()); n != 1 {
		t.Fatalf("claimed after replay = %d", n)
	}
	if got := loadEvents(t)[0].PublishStatus; got != models.OutboxPublishStatusSent {
		t.Fatalf("status after replay = %s", got)
	}
}

func TestWithWorkOrderLock_RunsWithoutRedis(t *testing.T) {
	config.UseRedis(nil)
	called := false
	err := workflow.WithWorkOrderLock(context.Background(), 1, func(ctx context.Context) error {
		called = true
		return errors.New("inner")
	})
	if !called || err == nil || err.Error() != "inner" {
		t.Fatalf("called=%t err=%v", called, err)
	}
}
