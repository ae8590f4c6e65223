package status

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func receive(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(waitFor):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, s *Subscription, within time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if ok {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(within):
	}
}

func TestInitialStatus(t *testing.T) {
	b := New()
	assert.Equal(t, BuildStatus{Status: Pending}, b.Current())
}

func TestNotifyDispatchesBeforeReturning(t *testing.T) {
	b := New(WithLateJoinDelay(time.Hour))
	first, second := b.Subscribe(), b.Subscribe()

	payload := &Payload{Message: "Building failed", Error: "boom"}
	b.Notify(Failed, payload)

	for _, s := range []*Subscription{first, second} {
		select {
		case ev := <-s.Events():
			assert.Equal(t, Event{Kind: SyncEvent, Status: BuildStatus{Status: Failed, Payload: payload}}, ev)
		default:
			t.Fatal("update not queued when Notify returned")
		}
	}
	assert.Equal(t, Failed, b.Current().Status)
}

func TestStateTransitions(t *testing.T) {
	b := New(WithLateJoinDelay(time.Hour))
	s := b.Subscribe()

	for _, st := range []Status{Pending, Success, Pending, Failed, Pending} {
		b.Notify(st, nil)
		assert.Equal(t, st, receive(t, s).Status.Status)
	}
}

func TestLateJoinerReceivesCurrentStatus(t *testing.T) {
	b := New(WithLateJoinDelay(10 * time.Millisecond))
	b.Notify(Pending, nil)
	b.Notify(Success, nil)

	s := b.Subscribe()
	ev := receive(t, s)
	assert.Equal(t, Event{Kind: SyncEvent, Status: BuildStatus{Status: Success}}, ev)
}

func TestSlowSubscriberKeepsLatest(t *testing.T) {
	b := New(WithLateJoinDelay(time.Hour), WithBuffer(2))
	slow := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			b.Notify(Pending, nil)
			b.Notify(Success, nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Notify blocked on a full subscriber")
	}

	// The full queue kept the newest updates
	assert.Equal(t, Pending, receive(t, slow).Status.Status)
	assert.Equal(t, Success, receive(t, slow).Status.Status)
	assertNoEvent(t, slow, 10*time.Millisecond)
}

func TestCloseDeliversOnce(t *testing.T) {
	b := New(WithLateJoinDelay(time.Hour))
	subs := []*Subscription{b.Subscribe(), b.Subscribe(), b.Subscribe()}

	b.Close()
	b.Close()
	b.Notify(Success, nil)

	for _, s := range subs {
		var closes int
		for ev := range s.Events() {
			if ev.Kind == CloseEvent {
				closes++
			}
		}
		assert.Equal(t, 1, closes)
	}
	assert.Zero(t, b.Len())

	late := b.Subscribe()
	_, ok := <-late.Events()
	assert.False(t, ok, "subscription after close is closed")
	late.Cancel()
}

func TestCancelIsLocal(t *testing.T) {
	b := New(WithLateJoinDelay(5 * time.Millisecond))
	gone := b.Subscribe()
	stays := b.Subscribe()

	gone.Cancel()
	gone.Cancel()
	assert.Equal(t, 1, b.Len())

	_, ok := <-gone.Events()
	assert.False(t, ok)

	b.Notify(Success, nil)
	// Late-join replay and the notification both reach the remaining subscriber
	got := map[Status]bool{}
	got[receive(t, stays).Status.Status] = true
	got[receive(t, stays).Status.Status] = true
	assert.True(t, got[Success])
}

func TestCancelStopsLateJoin(t *testing.T) {
	b := New(WithLateJoinDelay(5 * time.Millisecond))
	s := b.Subscribe()
	s.Cancel()

	assertNoEvent(t, s, 30*time.Millisecond)
}

func TestConcurrentNotifyAndSubscribe(t *testing.T) {
	b := New(WithLateJoinDelay(time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := b.Subscribe()
			defer s.Cancel()
			b.Notify(Success, nil)
		}()
		go func() {
			defer wg.Done()
			b.Notify(Pending, nil)
		}()
	}
	wg.Wait()
	b.Close()
	assert.Zero(t, b.Len())
}
