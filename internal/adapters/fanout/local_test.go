package fanout

import (
	"context"
	"testing"
)

func TestLocalDeliversToAllSubscribers(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	var got []string
	for i := 0; i < 2; i++ {
		if err := l.Subscribe(ctx, func(topic string, payload []byte) {
			got = append(got, topic+"="+string(payload))
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Publish(ctx, RoomTopic("p", "r1"), []byte("x")); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "p.room.r1=x" {
		t.Errorf("got = %v", got)
	}
	_ = l.Close()
	if err := l.Publish(ctx, GlobalTopic("p"), nil); err != ErrClosed {
		t.Errorf("publish after close: err = %v", err)
	}
}

func TestConnectDegradesToLocal(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		degraded bool
	}{
		{"local", Options{Driver: "local"}, false},
		{"redis without url", Options{Driver: "redis"}, true},
		{"nats without url", Options{Driver: "nats"}, true},
		{"unknown", Options{Driver: "kafka"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, degraded := Connect(context.Background(), tt.opts)
			defer f.Close()
			if degraded != tt.degraded || f.Name() != "local" {
				t.Errorf("Connect = %s degraded=%v", f.Name(), degraded)
			}
		})
	}
}
