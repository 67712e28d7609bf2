package replyrouter

import (
	"testing"
	"time"

	"github.com/railcore/mc2core/internal/model"
)

func TestDispatch_DeliversDirectCallback(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop()

	got := make(chan model.ReplyMessage, 1)
	cb := func(msg model.ReplyMessage, ctx any) model.Disposition {
		got <- msg
		return model.Deregister
	}

	r.Dispatch(model.ReplyMessage{Addr: 3, Type: model.MsgPOM, Param: 42}, cb, nil)

	select {
	case msg := <-got:
		if msg.Param != 42 {
			t.Fatalf("expected param 42, got %d", msg.Param)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for direct callback delivery")
	}
}

func TestDispatch_MatchesWildcardListener(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop()

	fired := make(chan model.ReplyMessage, 1)
	r.Register(model.ListenerFilter{Addr: 5, Type: model.MsgDYN}, func(msg model.ReplyMessage, ctx any) model.Disposition {
		fired <- msg
		return model.Deregister
	}, nil, 0)

	r.Dispatch(model.ReplyMessage{Addr: 5, Type: model.MsgDYN}, nil, nil)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expected matching listener to fire")
	}
}

func TestDispatch_NonMatchingListenerNeverFires(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop()

	fired := false
	r.Register(model.ListenerFilter{Addr: 5, Type: model.MsgDYN}, func(msg model.ReplyMessage, ctx any) model.Disposition {
		fired = true
		return model.KeepListening
	}, nil, 0)

	r.Dispatch(model.ReplyMessage{Addr: 6, Type: model.MsgDYN}, nil, nil)
	time.Sleep(50 * time.Millisecond)

	if fired {
		t.Fatal("listener with a non-matching filter should not fire")
	}
}

func TestRegister_DeregisterRemovesListenerAfterOneFire(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop()

	count := 0
	r.Register(model.ListenerFilter{Addr: 1}, func(msg model.ReplyMessage, ctx any) model.Disposition {
		count++
		return model.Deregister
	}, nil, 0)

	r.Dispatch(model.ReplyMessage{Addr: 1}, nil, nil)
	r.Dispatch(model.ReplyMessage{Addr: 1}, nil, nil)
	time.Sleep(50 * time.Millisecond)

	if count != 1 {
		t.Fatalf("expected exactly 1 fire after Deregister, got %d", count)
	}
}

func TestCancel_RemovesListenerWithoutFiring(t *testing.T) {
	r := New()
	go r.Run()
	defer r.Stop()

	fired := false
	id := r.Register(model.ListenerFilter{Addr: 1}, func(msg model.ReplyMessage, ctx any) model.Disposition {
		fired = true
		return model.KeepListening
	}, nil, 0)
	r.Cancel(id)

	r.Dispatch(model.ReplyMessage{Addr: 1}, nil, nil)
	time.Sleep(50 * time.Millisecond)

	if fired {
		t.Fatal("cancelled listener must not fire")
	}
}

func TestPollTimeouts_FiresTimeoutAfterDeadline(t *testing.T) {
	r := New()

	got := make(chan model.ReplyMessage, 1)
	r.Register(model.ListenerFilter{Addr: 9}, func(msg model.ReplyMessage, ctx any) model.Disposition {
		got <- msg
		return model.Deregister
	}, nil, time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	r.PollTimeouts(time.Now())

	select {
	case msg := <-got:
		if msg.Type != model.MsgTimeout {
			t.Fatalf("expected MsgTimeout, got %v", msg.Type)
		}
	default:
		t.Fatal("expected PollTimeouts to fire the expired listener")
	}
}

func TestPollTimeouts_LeavesFreshListenersRegistered(t *testing.T) {
	r := New()
	r.Register(model.ListenerFilter{Addr: 9}, func(msg model.ReplyMessage, ctx any) model.Disposition {
		return model.KeepListening
	}, nil, time.Hour)

	r.PollTimeouts(time.Now())

	if len(r.listeners) != 1 {
		t.Fatalf("expected the non-expired listener to remain registered, got %d", len(r.listeners))
	}
}
