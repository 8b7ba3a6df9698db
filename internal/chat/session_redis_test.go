package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"creditlens/internal/event"
)

// streamingBackend 异步发布 n 个单字片段和结束事件
type streamingBackend struct {
	bus event.Bus
	n   int
}

func (b *streamingBackend) SendConversation(ctx context.Context, req Request) error {
	go func() {
		for i := 0; i < b.n; i++ {
			_ = b.bus.Publish(ctx, event.Event{Topic: event.TopicChunk, Session: req.SessionID, Exchange: req.Exchange, Payload: "x"})
		}
		_ = b.bus.Publish(ctx, event.Event{Topic: event.TopicEnd, Session: req.SessionID, Exchange: req.Exchange})
	}()
	return nil
}

func TestSessionOverRedisBus(t *testing.T) {
	Convey("经 Redis 事件通道的长回复完整拼接", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		bus := event.NewRedisBus(client, "creditlens:test:")
		defer bus.Close()

		const n = 3000
		s := NewSession(&streamingBackend{bus: bus, n: n}, bus, WithSubject(testCompany("C001", "青禾新材")))
		So(s.Mount(ctx), ShouldBeNil)
		defer s.Close()

		So(s.Send(ctx, "请做一份完整的信用分析"), ShouldBeNil)

		deadline := time.Now().Add(10 * time.Second)
		for s.State() != StateIdle && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		So(s.State(), ShouldEqual, StateIdle)

		turns := s.Conversation()
		So(len(turns), ShouldEqual, 2)
		So(turns[1].IsStreaming, ShouldBeFalse)
		So(turns[1].Content, ShouldEqual, strings.Repeat("x", n))
	})
}
