package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishToTaskSubscriber(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch := p.Subscribe("t1")
	p.Publish(ProgressUpdate{TaskID: "t1", Progress: 50, CurrentStep: "Working"})

	select {
	case got := <-ch:
		assert.Equal(t, "t1", got.TaskID)
		assert.Equal(t, 50, got.Progress)
		assert.Equal(t, "Working", got.CurrentStep)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSubscriberIsolation(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	other := p.Subscribe("t2")
	p.Publish(ProgressUpdate{TaskID: "t1", Progress: 10})

	select {
	case got := <-other:
		t.Fatalf("unexpected update for t2: %+v", got)
	default:
	}
}

func TestGlobalSubscriber(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	all := p.Subscribe(GlobalTaskID)
	p.Publish(ProgressUpdate{TaskID: "t1", Progress: 10})
	p.Publish(ProgressUpdate{TaskID: "t2", Progress: 20})

	first := <-all
	second := <-all
	assert.Equal(t, "t1", first.TaskID)
	assert.Equal(t, "t2", second.TaskID)
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	p := NewMemoryPublisher(WithBufferSize(1))
	defer p.Close()

	ch := p.Subscribe("t1")
	done := make(chan struct{})
	go func() {
		p.Publish(ProgressUpdate{TaskID: "t1", Progress: 1})
		p.Publish(ProgressUpdate{TaskID: "t1", Progress: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full buffer")
	}

	got := <-ch
	assert.Equal(t, 1, got.Progress)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch := p.Subscribe("t1")
	p.Unsubscribe("t1", ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	p.Publish(ProgressUpdate{TaskID: "t1"})
}

func TestCloseShutsDownSubscriptions(t *testing.T) {
	p := NewMemoryPublisher()
	ch := p.Subscribe("t1")
	p.Close()

	_, open := <-ch
	require.False(t, open)

	// Idempotent.
	p.Close()
	p.Publish(ProgressUpdate{TaskID: "t1"})

	late := p.Subscribe("t1")
	_, open = <-late
	assert.False(t, open)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	p.Publish(ProgressUpdate{TaskID: "t1"})

	ch := p.Subscribe("t1")
	_, open := <-ch
	assert.False(t, open)

	p.Unsubscribe("t1", ch)
	p.Close()
}
