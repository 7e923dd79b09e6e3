package event_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizbot/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	tests := map[string]struct {
		published   []string
		subscribers map[string][]string

		want map[string][]string
	}{
		"a subscriber should only receive its events": {
			published:   []string{"reply.ready", "user.created"},
			subscribers: map[string][]string{"telegram": {"reply.ready"}},
			want:        map[string][]string{"telegram": {"reply.ready"}},
		},
		"a subscriber should receive every publish": {
			published:   []string{"reply.ready", "reply.ready"},
			subscribers: map[string][]string{"telegram": {"reply.ready"}},
			want:        map[string][]string{"telegram": {"reply.ready", "reply.ready"}},
		},
		"an event should reach all subscribers": {
			published: []string{"reply.ready"},
			subscribers: map[string][]string{
				"telegram": {"reply.ready"},
				"audit":    {"reply.ready"},
			},
			want: map[string][]string{
				"telegram": {"reply.ready"},
				"audit":    {"reply.ready"},
			},
		},
		"events without subscribers should be dropped": {
			published:   []string{"e1", "e2"},
			subscribers: map[string][]string{"s1": {"e3"}},
			want:        map[string][]string{},
		},
		"mixed events should be routed by name": {
			published: []string{"e1", "e2", "e1", "e3"},
			subscribers: map[string][]string{
				"s1": {"e1"},
				"s2": {"e1", "e2"},
				"s3": {"e3", "e2"},
			},
			want: map[string][]string{
				"s1": {"e1", "e1"},
				"s2": {"e1", "e1", "e2"},
				"s3": {"e2", "e3"},
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			got := make(map[string][]string)

			b := event.NewBus(event.WithPoolSize(2))
			for sub, names := range tt.subscribers {
				sub := sub
				for _, n := range names {
					b.Subscribe(n, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						got[sub] = append(got[sub], e.Name())
						mu.Unlock()
						return nil
					})
				}
			}

			for _, n := range tt.published {
				b.Publish(context.Background(), named(n))
			}
			b.Stop()

			require.Len(t, got, len(tt.want))
			for sub, want := range tt.want {
				assert.ElementsMatch(t, want, got[sub], "subscriber %s", sub)
			}
		})
	}
}

func TestBus_SlowEventDoesNotBlockOthers(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(1))

	release := make(chan struct{})
	b.Subscribe("slow", func(ctx context.Context, e event.Event) error {
		<-release
		return nil
	})

	var fast atomic.Int32
	b.Subscribe("fast", func(ctx context.Context, e event.Event) error {
		fast.Add(1)
		return nil
	})

	b.Publish(context.Background(), named("slow"))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(context.Background(), named("fast"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fast events blocked by a slow handler")
	}

	close(release)
	b.Stop()
	assert.Equal(t, int32(5), fast.Load())
}

func TestBus_HandlerFailures(t *testing.T) {
	b := event.NewBus(event.WithTimeout(50 * time.Millisecond))

	var calls atomic.Int32
	b.Subscribe("e", func(ctx context.Context, e event.Event) error {
		calls.Add(1)
		panic("boom")
	})
	b.Subscribe("e", func(ctx context.Context, e event.Event) error {
		calls.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	b.Publish(ctx, named("e"))
	cancel()

	stopped := make(chan struct{})
	go func() {
		b.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers were not bounded by the timeout")
	}

	assert.Equal(t, int32(2), calls.Load())
}

type named string

func (e named) Name() string {
	return string(e)
}
