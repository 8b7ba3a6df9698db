package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"creditlens/internal/event"
	"creditlens/internal/model"
	"creditlens/internal/prompt"
)

type fakeBackend struct {
	mu   sync.Mutex
	reqs []Request
	err  error
}

func (f *fakeBackend) SendConversation(_ context.Context, req Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

func (f *fakeBackend) last() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

// gatedSource 在 gate 关闭前阻塞 Listen
type gatedSource struct {
	entered chan struct{}
	gate    chan struct{}

	mu       sync.Mutex
	listened int
	released int
}

func (g *gatedSource) Listen(_ context.Context, _ string, _ event.Handler) (event.Unlisten, error) {
	g.entered <- struct{}{}
	<-g.gate
	g.mu.Lock()
	g.listened++
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.released++
		g.mu.Unlock()
	}, nil
}

func testCompany(id, name string) *model.Company {
	return &model.Company{
		CompanyData: model.CompanyData{
			CompanyID:   id,
			CompanyName: name,
			Industry:    "新材料",
			Revenue:     50000,
			NetProfit:   4000,
			TotalAssets: 60000,
		},
		CreditScore:  82,
		CreditRating: "A",
		CreditLimit:  "500-800万",
		RiskLevel:    "低",
	}
}

func chunk(s *Session, exchange uint64, payload string) event.Event {
	return event.Event{Topic: event.TopicChunk, Session: s.ID(), Exchange: exchange, Payload: payload}
}

func end(s *Session, exchange uint64) event.Event {
	return event.Event{Topic: event.TopicEnd, Session: s.ID(), Exchange: exchange}
}

func TestSessionStreaming(t *testing.T) {
	Convey("流式回复", t, func() {
		ctx := context.Background()
		bus := event.NewMemoryBus()
		backend := &fakeBackend{}
		var updates []Update
		s := NewSession(backend, bus,
			WithSubject(testCompany("C001", "青禾新材")),
			WithObserver(func(u Update) { updates = append(updates, u) }),
		)
		So(s.Mount(ctx), ShouldBeNil)

		So(s.Send(ctx, "  这家企业的偿债能力如何？ "), ShouldBeNil)

		turns := s.Conversation()
		So(len(turns), ShouldEqual, 2)
		So(turns[0].Role, ShouldEqual, model.RoleUser)
		So(turns[0].Content, ShouldEqual, "这家企业的偿债能力如何？")
		So(turns[1].Role, ShouldEqual, model.RoleAssistant)
		So(turns[1].IsStreaming, ShouldBeTrue)
		So(s.State(), ShouldEqual, StateSending)
		So(s.CanSend(), ShouldBeFalse)
		So(updates[0].Kind, ShouldEqual, UpdateAppended)

		req := backend.last()
		So(req.SessionID, ShouldEqual, s.ID())
		So(len(req.Messages), ShouldEqual, 2)
		So(req.Messages[0].Role, ShouldEqual, model.RoleSystem)
		So(req.Messages[0].Content, ShouldEqual, prompt.System(prompt.KindFreeText))
		So(req.Messages[1].Content, ShouldEqual, "这家企业的偿债能力如何？")

		Convey("片段按到达顺序拼接，结束后回到空闲", func() {
			for _, p := range []string{"资产负债率", "处于", "合理区间。"} {
				So(bus.Publish(ctx, chunk(s, req.Exchange, p)), ShouldBeNil)
			}
			So(s.State(), ShouldEqual, StateStreaming)
			So(bus.Publish(ctx, end(s, req.Exchange)), ShouldBeNil)

			turns := s.Conversation()
			So(len(turns), ShouldEqual, 2)
			So(turns[1].Content, ShouldEqual, "资产负债率处于合理区间。")
			So(turns[1].IsStreaming, ShouldBeFalse)
			So(s.State(), ShouldEqual, StateIdle)
			So(s.CanSend(), ShouldBeTrue)

			last := updates[len(updates)-1]
			So(last.Kind, ShouldEqual, UpdateSettled)
			So(last.State, ShouldEqual, StateSettled)

			Convey("结束后的迟到片段被丢弃", func() {
				So(bus.Publish(ctx, chunk(s, req.Exchange, "多余")), ShouldBeNil)
				So(s.Conversation()[1].Content, ShouldEqual, "资产负债率处于合理区间。")
			})

			Convey("下一轮携带已完成的历史消息", func() {
				So(s.Send(ctx, "授信额度建议？"), ShouldBeNil)
				next := backend.last()
				So(next.Exchange, ShouldBeGreaterThan, req.Exchange)
				So(len(next.Messages), ShouldEqual, 4)
				So(next.Messages[1].Role, ShouldEqual, model.RoleUser)
				So(next.Messages[2].Content, ShouldEqual, "资产负债率处于合理区间。")
				So(next.Messages[3].Content, ShouldEqual, "授信额度建议？")

				Convey("上一轮交互的片段不会混入本轮", func() {
					So(bus.Publish(ctx, chunk(s, req.Exchange, "旧")), ShouldBeNil)
					So(bus.Publish(ctx, chunk(s, next.Exchange, "新")), ShouldBeNil)
					turns := s.Conversation()
					So(turns[len(turns)-1].Content, ShouldEqual, "新")
				})
			})
		})

		Convey("回复进行中再次发送被拒绝", func() {
			So(bus.Publish(ctx, chunk(s, req.Exchange, "部分")), ShouldBeNil)
			So(s.Send(ctx, "再问一次"), ShouldEqual, ErrBusy)
			So(s.SendShortcut(ctx, prompt.KindCreditAnalysis), ShouldEqual, ErrBusy)
			So(backend.calls(), ShouldEqual, 1)
			So(len(s.Conversation()), ShouldEqual, 2)
		})

		Convey("任意时刻至多一条流式回复", func() {
			streaming := 0
			for _, turn := range s.Conversation() {
				if turn.IsStreaming {
					streaming++
				}
			}
			So(streaming, ShouldEqual, 1)
		})

		Convey("其他会话的事件被忽略", func() {
			So(bus.Publish(ctx, event.Event{Topic: event.TopicChunk, Session: "other", Exchange: req.Exchange, Payload: "x"}), ShouldBeNil)
			So(s.Conversation()[1].Content, ShouldEqual, "")
			So(s.State(), ShouldEqual, StateSending)
		})
	})
}

func TestSessionReset(t *testing.T) {
	Convey("切换企业", t, func() {
		ctx := context.Background()
		bus := event.NewMemoryBus()
		backend := &fakeBackend{}
		var archived []model.Transcript
		s := NewSession(backend, bus,
			WithSubject(testCompany("C001", "青禾新材")),
			WithArchiver(func(t model.Transcript) { archived = append(archived, t) }),
		)
		So(s.Mount(ctx), ShouldBeNil)

		So(s.Send(ctx, "第一问"), ShouldBeNil)
		first := backend.last()
		So(bus.Publish(ctx, chunk(s, first.Exchange, "第一答")), ShouldBeNil)
		So(bus.Publish(ctx, end(s, first.Exchange)), ShouldBeNil)

		So(s.Send(ctx, "第二问"), ShouldBeNil)
		second := backend.last()
		So(bus.Publish(ctx, chunk(s, second.Exchange, "进行")), ShouldBeNil)

		So(s.Reset(ctx, testCompany("C002", "远山物流")), ShouldBeNil)

		Convey("对话清空，状态回到空闲", func() {
			So(len(s.Conversation()), ShouldEqual, 0)
			So(s.State(), ShouldEqual, StateIdle)
			So(s.Subject().ID(), ShouldEqual, "C002")
			So(s.CanSend(), ShouldBeTrue)
		})

		Convey("重新订阅且只保留一组", func() {
			So(bus.Listeners(event.TopicChunk), ShouldEqual, 1)
			So(bus.Listeners(event.TopicEnd), ShouldEqual, 1)
		})

		Convey("旧企业的迟到片段不会出现", func() {
			So(bus.Publish(ctx, chunk(s, second.Exchange, "中")), ShouldBeNil)
			So(bus.Publish(ctx, end(s, second.Exchange)), ShouldBeNil)
			So(len(s.Conversation()), ShouldEqual, 0)

			So(s.Send(ctx, "新企业的问题"), ShouldBeNil)
			third := backend.last()
			So(bus.Publish(ctx, chunk(s, second.Exchange, "旧")), ShouldBeNil)
			So(bus.Publish(ctx, chunk(s, third.Exchange, "新")), ShouldBeNil)
			turns := s.Conversation()
			So(turns[len(turns)-1].Content, ShouldEqual, "新")
		})

		Convey("已完成的对话被归档", func() {
			So(len(archived), ShouldEqual, 1)
			So(archived[0].CompanyID, ShouldEqual, "C001")
			So(archived[0].SessionID, ShouldEqual, s.ID())
			So(len(archived[0].Turns), ShouldEqual, 3)
			So(archived[0].Turns[2].Content, ShouldEqual, "第二问")
		})
	})
}

func TestSessionDispatchFailure(t *testing.T) {
	Convey("请求失败", t, func() {
		ctx := context.Background()
		bus := event.NewMemoryBus()
		backend := &fakeBackend{err: fmt.Errorf("deepseek: %w", ErrMissingCredentials)}
		var updates []Update
		s := NewSession(backend, bus,
			WithSubject(testCompany("C001", "青禾新材")),
			WithObserver(func(u Update) { updates = append(updates, u) }),
		)
		So(s.Mount(ctx), ShouldBeNil)

		err := s.Send(ctx, "评估一下")
		So(err, ShouldNotBeNil)

		var n *Notice
		So(errors.As(err, &n), ShouldBeTrue)
		So(n.Kind, ShouldEqual, NoticeMissingKey)
		So(errors.Is(err, ErrMissingCredentials), ShouldBeTrue)

		Convey("保留用户消息，移除回复占位", func() {
			turns := s.Conversation()
			So(len(turns), ShouldEqual, 1)
			So(turns[0].Role, ShouldEqual, model.RoleUser)
			So(turns[0].Content, ShouldEqual, "评估一下")
			So(s.State(), ShouldEqual, StateIdle)
		})

		Convey("观察者收到失败提示", func() {
			last := updates[len(updates)-1]
			So(last.Kind, ShouldEqual, UpdateFailed)
			So(last.State, ShouldEqual, StateFailed)
			So(last.Notice.Message, ShouldEqual, MessageMissingKey)
		})

		Convey("失败后可以再次发送", func() {
			backend.err = nil
			So(s.Send(ctx, "再试一次"), ShouldBeNil)
			req := backend.last()
			So(len(req.Messages), ShouldEqual, 3)
			So(req.Messages[1].Content, ShouldEqual, "评估一下")
		})
	})
}

func TestSessionValidation(t *testing.T) {
	Convey("本地校验失败不改变对话", t, func() {
		ctx := context.Background()
		backend := &fakeBackend{}

		Convey("空输入", func() {
			s := NewSession(backend, event.NewMemoryBus(), WithSubject(testCompany("C001", "青禾新材")))
			So(s.Send(ctx, "   \n\t"), ShouldEqual, ErrEmptyInput)
			So(len(s.Conversation()), ShouldEqual, 0)
		})

		Convey("未选择企业", func() {
			s := NewSession(backend, event.NewMemoryBus())
			So(s.Send(ctx, "你好"), ShouldEqual, ErrNoSubject)
			So(s.SendShortcut(ctx, prompt.KindAlgorithmCheck), ShouldEqual, ErrNoSubject)
			So(s.CanSend(), ShouldBeFalse)
			So(len(s.Conversation()), ShouldEqual, 0)
		})

		Convey("未知快捷分析", func() {
			s := NewSession(backend, event.NewMemoryBus(), WithSubject(testCompany("C001", "青禾新材")))
			err := s.SendShortcut(ctx, prompt.Kind("unknown"))
			So(errors.Is(err, ErrUnknownShortcut), ShouldBeTrue)
			So(errors.Is(err, ErrEmptyInput), ShouldBeFalse)
			So(len(s.Conversation()), ShouldEqual, 0)
		})

		So(backend.calls(), ShouldEqual, 0)
	})
}

func TestSessionShortcut(t *testing.T) {
	Convey("快捷分析显示入口名称，发送企业档案", t, func() {
		ctx := context.Background()
		backend := &fakeBackend{}
		s := NewSession(backend, event.NewMemoryBus(), WithSubject(testCompany("C001", "青禾新材")))

		So(s.SendShortcut(ctx, prompt.KindCreditAnalysis), ShouldBeNil)

		turns := s.Conversation()
		So(turns[0].Content, ShouldEqual, "根据原始数据分析信贷")

		req := backend.last()
		So(req.Messages[0].Content, ShouldEqual, prompt.System(prompt.KindCreditAnalysis))
		So(strings.HasPrefix(req.Messages[1].Content, "请基于以下企业原始数据进行信贷分析"), ShouldBeTrue)
		So(req.Messages[1].Content, ShouldContainSubstring, "企业名称:青禾新材")
	})
}

func TestSessionLifecycle(t *testing.T) {
	Convey("订阅生命周期", t, func() {
		ctx := context.Background()
		bus := event.NewMemoryBus()
		s := NewSession(&fakeBackend{}, bus, WithID("s-1"), WithSubject(testCompany("C001", "青禾新材")))
		So(s.ID(), ShouldEqual, "s-1")

		Convey("重复 Mount 只保留一组订阅", func() {
			So(s.Mount(ctx), ShouldBeNil)
			So(s.Mount(ctx), ShouldBeNil)
			So(bus.Listeners(event.TopicChunk), ShouldEqual, 1)
			So(bus.Listeners(event.TopicEnd), ShouldEqual, 1)
		})

		Convey("Close 释放订阅且可重复调用", func() {
			So(s.Mount(ctx), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
			So(bus.Listeners(event.TopicChunk), ShouldEqual, 0)
			So(bus.Listeners(event.TopicEnd), ShouldEqual, 0)
			So(s.Send(ctx, "你好"), ShouldEqual, ErrClosed)
			So(s.Mount(ctx), ShouldEqual, ErrClosed)
			So(s.Reset(ctx, nil), ShouldEqual, ErrClosed)
		})

		Convey("订阅失败时不保留半组订阅", func() {
			So(bus.Close(), ShouldBeNil)
			So(s.Mount(ctx), ShouldEqual, event.ErrBusClosed)
		})
	})

	Convey("Close 之后才完成的订阅会被立即释放", t, func() {
		ctx := context.Background()
		src := &gatedSource{entered: make(chan struct{}, 2), gate: make(chan struct{})}
		s := NewSession(&fakeBackend{}, src, WithSubject(testCompany("C001", "青禾新材")))

		done := make(chan error, 1)
		go func() { done <- s.Mount(ctx) }()
		<-src.entered

		So(s.Close(), ShouldBeNil)
		close(src.gate)
		So(<-done, ShouldBeNil)

		src.mu.Lock()
		defer src.mu.Unlock()
		So(src.listened, ShouldEqual, 2)
		So(src.released, ShouldEqual, 2)
	})
}

func TestSessionStart(t *testing.T) {
	Convey("Start 在后台发送，失败通过观察者通知", t, func() {
		ctx := context.Background()
		failed := make(chan Update, 1)
		backend := &fakeBackend{err: errors.New("API 错误 500: upstream overloaded")}
		s := NewSession(backend, event.NewMemoryBus(),
			WithSubject(testCompany("C001", "青禾新材")),
			WithObserver(func(u Update) {
				if u.Kind == UpdateFailed {
					failed <- u
				}
			}),
		)

		_, err := s.Start(ctx, "")
		So(err, ShouldEqual, ErrEmptyInput)
		done, err := s.Start(ctx, "偿债能力？")
		So(err, ShouldBeNil)

		u := <-failed
		var n *Notice
		So(errors.As(<-done, &n), ShouldBeTrue)
		So(n.Kind, ShouldEqual, NoticeBackend)
		So(u.Notice.Kind, ShouldEqual, NoticeBackend)
		So(u.Notice.Message, ShouldEqual, "API 错误 500: upstream overloaded")

		turns := s.Conversation()
		So(len(turns), ShouldEqual, 1)
		So(s.State(), ShouldEqual, StateIdle)
	})

	Convey("Start 在回复进行中同步返回 ErrBusy", t, func() {
		ctx := context.Background()
		backend := &fakeBackend{}
		s := NewSession(backend, event.NewMemoryBus(), WithSubject(testCompany("C001", "青禾新材")))
		So(s.Send(ctx, "第一问"), ShouldBeNil)
		_, err := s.Start(ctx, "第二问")
		So(err, ShouldEqual, ErrBusy)
		_, err = s.StartShortcut(ctx, prompt.KindAlgorithmCheck)
		So(err, ShouldEqual, ErrBusy)
	})
}
