package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMessages(t *testing.T) {
	// 所有事件类型都要有提示文案
	events := []string{EventProcessing, EventCompleted, EventFailed}

	for _, event := range events {
		msg, ok := eventMessages[event]
		assert.True(t, ok, "Event %s should have message", event)
		assert.NotEmpty(t, msg, "Message for %s should not be empty", event)
	}
}

func TestImageEvent_JSON(t *testing.T) {
	msg := &ImageEvent{
		Type:              "image_event",
		UserID:            1,
		ImageID:           2,
		Name:              "Ghibli Art",
		Status:            EventCompleted,
		GeneratedImageURL: "https://cdn.example.com/generated/2.png",
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	// snake_case 字段名
	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	assert.Contains(t, raw, "user_id")
	assert.Contains(t, raw, "image_id")
	assert.Contains(t, raw, "generated_image_url")

	var decoded ImageEvent
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, msg.UserID, decoded.UserID)
	assert.Equal(t, msg.ImageID, decoded.ImageID)
	assert.Equal(t, msg.GeneratedImageURL, decoded.GeneratedImageURL)
}

func TestImageEvent_OmitEmpty(t *testing.T) {
	msg := &ImageEvent{
		UserID: 1,
		Status: EventProcessing,
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	_, hasURL := raw["generated_image_url"]
	_, hasError := raw["error"]
	assert.False(t, hasURL, "empty url should be omitted")
	assert.False(t, hasError, "empty error should be omitted")
}

func TestPublisherSubscriber_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	testCtx, testCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer testCancel()

	received := make(chan *ImageEvent, 1)

	go func() {
		subscriber.Subscribe(testCtx, func(event *ImageEvent) {
			received <- event
		})
	}()

	// 等订阅建立
	time.Sleep(100 * time.Millisecond)

	msg := &ImageEvent{
		UserID:  123,
		ImageID: 456,
		Name:    "Test Art",
		Status:  EventCompleted,
	}

	err = publisher.PublishEvent(testCtx, msg)
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, int64(123), event.UserID)
		assert.Equal(t, int64(456), event.ImageID)
		assert.Equal(t, "image_event", event.Type)
		assert.Equal(t, eventMessages[EventCompleted], event.Message) // 自动填充
	case <-testCtx.Done():
		t.Fatal("Timeout waiting for event")
	}
}

func TestPublisher_AutoFillMessage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewPublisher(client)

	msg := &ImageEvent{
		UserID: 1,
		Status: EventFailed,
	}
	require.NoError(t, publisher.PublishEvent(context.Background(), msg))

	assert.Equal(t, eventMessages[EventFailed], msg.Message)
	assert.Equal(t, "image_event", msg.Type)
}

func TestPublisher_KeepsExplicitMessage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewPublisher(client)

	msg := &ImageEvent{
		UserID:  1,
		Status:  EventFailed,
		Message: "自定义提示",
	}
	require.NoError(t, publisher.PublishEvent(context.Background(), msg))

	assert.Equal(t, "自定义提示", msg.Message)
}
