package progress_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"mediaflow/internal/catalog"
	"mediaflow/internal/progress"
)

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := progress.NewHub(nil)
	if n := hub.Publish(progress.ItemTopic("nobody"), progress.ErrorEvent("nobody", "x")); n != 0 {
		t.Fatalf("delivered = %d, want 0", n)
	}
	var nilHub *progress.Hub
	if n := nilHub.Publish("t", progress.Event{}); n != 0 {
		t.Fatalf("nil hub delivered = %d", n)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := progress.NewHub(nil)
	sub := progress.NewChannelSubscriber(8)
	topic := progress.ItemTopic("a")

	hub.Subscribe(sub, topic)
	hub.Subscribe(sub, topic)
	if n := hub.Publish(topic, progress.ErrorEvent("a", "boom")); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	if len(sub.Events()) != 1 {
		t.Fatalf("expected exactly one queued event, got %d", len(sub.Events()))
	}

	hub.Unsubscribe(sub, topic)
	hub.Unsubscribe(sub, topic)
	if hub.Subscribers(topic) != 0 || hub.Connections() != 0 {
		t.Fatal("expected hub to be empty after unsubscribe")
	}
}

func TestPublishFansOutPerTopic(t *testing.T) {
	hub := progress.NewHub(nil)
	itemSub := progress.NewChannelSubscriber(8)
	userSub := progress.NewChannelSubscriber(8)
	otherSub := progress.NewChannelSubscriber(8)
	hub.Subscribe(itemSub, progress.ItemTopic("a"))
	hub.Subscribe(userSub, progress.UserTopic("u1"))
	hub.Subscribe(otherSub, progress.ItemTopic("b"))

	item := &catalog.Item{ID: "a", OwnerID: "u1", Status: catalog.StatusProcessing, Stage: catalog.StageAnalyzingContent, Progress: 50}
	if n := hub.PublishAll(progress.Topics(item.ID, item.OwnerID), progress.ProgressEvent(item)); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	if len(otherSub.Events()) != 0 {
		t.Fatal("unrelated subscriber received event")
	}
	evt := <-userSub.Events()
	if evt.Type != progress.EventProgress || *evt.Progress != 50 || evt.Stage != catalog.StageAnalyzingContent {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := progress.NewHub(nil)
	slow := progress.NewChannelSubscriber(1)
	fast := progress.NewChannelSubscriber(16)
	hub.Subscribe(slow, progress.ItemTopic("a"))
	hub.Subscribe(slow, progress.UserTopic("u"))
	hub.Subscribe(fast, progress.ItemTopic("a"))

	for i := 0; i < 3; i++ {
		hub.Publish(progress.ItemTopic("a"), progress.ErrorEvent("a", "x"))
	}

	select {
	case <-slow.Dropped():
	default:
		t.Fatal("expected slow subscriber to be marked dropped")
	}
	if hub.Subscribers(progress.ItemTopic("a")) != 1 || hub.Subscribers(progress.UserTopic("u")) != 0 {
		t.Fatal("expected slow subscriber removed from all topics")
	}
	if len(fast.Events()) != 3 {
		t.Fatalf("fast subscriber got %d events, want 3", len(fast.Events()))
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	hub := progress.NewHub(nil)
	topic := progress.ItemTopic("a")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := progress.NewChannelSubscriber(64)
			hub.Subscribe(sub, topic)
			hub.UnsubscribeAll(sub)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(topic, progress.ErrorEvent("a", "x"))
		}()
	}
	wg.Wait()
	if hub.Connections() != 0 {
		t.Fatalf("expected no lingering subscribers, got %d", hub.Connections())
	}
}

func TestEventJSONShapes(t *testing.T) {
	item := &catalog.Item{ID: "a", Status: catalog.StatusPending, Stage: catalog.StageQueued, ProgressMessage: "Queued"}
	data, err := json.Marshal(progress.ProgressEvent(item))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Zero progress must still be present on the wire.
	if !strings.Contains(string(data), `"progress":0`) {
		t.Fatalf("expected progress field in %s", data)
	}

	data, _ = json.Marshal(progress.ErrorEvent("a", "disk gone"))
	if string(data) != `{"type":"error","id":"a","error":"disk gone"}` {
		t.Fatalf("unexpected error event json %s", data)
	}
}
