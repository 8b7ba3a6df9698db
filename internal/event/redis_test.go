package event

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestRedisBus(t *testing.T) *RedisBus {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBus(client, "creditlens:test:")
}

func TestRedisBus(t *testing.T) {
	Convey("RedisBus 顺序投递同一主题的事件", t, func() {
		ctx := context.Background()
		bus := newTestRedisBus(t)
		defer bus.Close()

		got := make(chan Event, 8)
		unlisten, err := bus.Listen(ctx, TopicChunk, func(ev Event) { got <- ev })
		So(err, ShouldBeNil)
		defer unlisten()

		for _, p := range []string{"一", "二", "三"} {
			So(bus.Publish(ctx, Event{Topic: TopicChunk, Session: "s1", Exchange: 7, Payload: p}), ShouldBeNil)
		}

		var payloads []string
		timeout := time.After(3 * time.Second)
		for len(payloads) < 3 {
			select {
			case ev := <-got:
				So(ev.Session, ShouldEqual, "s1")
				So(ev.Exchange, ShouldEqual, 7)
				payloads = append(payloads, ev.Payload)
			case <-timeout:
				t.Fatal("timed out waiting for events")
			}
		}
		So(payloads, ShouldResemble, []string{"一", "二", "三"})
	})

	Convey("片段与结束事件跨主题保持发布顺序", t, func() {
		ctx := context.Background()
		bus := newTestRedisBus(t)
		defer bus.Close()

		const n = 500
		var (
			mu    sync.Mutex
			order []string
		)
		ended := make(chan struct{})
		record := func(ev Event) {
			mu.Lock()
			order = append(order, ev.Topic+":"+ev.Payload)
			mu.Unlock()
			if ev.Topic == TopicEnd {
				close(ended)
			}
		}
		unChunk, err := bus.Listen(ctx, TopicChunk, record)
		So(err, ShouldBeNil)
		defer unChunk()
		unEnd, err := bus.Listen(ctx, TopicEnd, record)
		So(err, ShouldBeNil)
		defer unEnd()
		So(bus.Listeners(TopicChunk), ShouldEqual, 1)
		So(bus.Listeners(TopicEnd), ShouldEqual, 1)

		for i := 0; i < n; i++ {
			So(bus.Publish(ctx, Event{Topic: TopicChunk, Session: "s1", Exchange: 1, Payload: fmt.Sprint(i)}), ShouldBeNil)
		}
		So(bus.Publish(ctx, Event{Topic: TopicEnd, Session: "s1", Exchange: 1}), ShouldBeNil)

		select {
		case <-ended:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for end event")
		}

		mu.Lock()
		defer mu.Unlock()
		So(len(order), ShouldEqual, n+1)
		for i := 0; i < n; i++ {
			So(order[i], ShouldEqual, TopicChunk+":"+fmt.Sprint(i))
		}
		So(order[n], ShouldEqual, TopicEnd+":")
	})

	Convey("取消订阅与关闭", t, func() {
		ctx := context.Background()
		bus := newTestRedisBus(t)

		unlisten, err := bus.Listen(ctx, TopicChunk, func(Event) {})
		So(err, ShouldBeNil)
		So(bus.Listeners(TopicChunk), ShouldEqual, 1)
		unlisten()
		unlisten()
		So(bus.Listeners(TopicChunk), ShouldEqual, 0)

		So(bus.Close(), ShouldBeNil)
		So(bus.Close(), ShouldBeNil)
		So(bus.Publish(ctx, Event{Topic: TopicChunk}), ShouldEqual, ErrBusClosed)
		_, err = bus.Listen(ctx, TopicChunk, func(Event) {})
		So(err, ShouldEqual, ErrBusClosed)
	})
}
