package core

import "testing"

func TestEventRegisterAndFire(t *testing.T) {
	EventSystemInitialize()
	defer EventSystemShutdown()

	type listener struct{ hits int }
	l := &listener{}

	cb := func(code SystemEventCode, sender interface{}, inst interface{}, data EventContext) bool {
		inst.(*listener).hits += int(data.Data.U32[0])
		return true
	}

	if !EventRegister(EVENT_CODE_RESIZED, l, cb) {
		t.Fatal("expected first registration to succeed")
	}
	if EventRegister(EVENT_CODE_RESIZED, l, cb) {
		t.Fatal("expected duplicate registration to be rejected")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 3
	if !EventFire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("expected event to be handled")
	}
	if l.hits != 3 {
		t.Fatalf("expected 3 hits, got %d", l.hits)
	}

	if !EventUnregister(EVENT_CODE_RESIZED, l) {
		t.Fatal("expected unregister to succeed")
	}
	if EventFire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("no listener should remain")
	}
}
