package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"creditlens/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Mode: "test"},
		AI:     config.AIConfig{Provider: "deepseek"},
		Event:  config.EventConfig{Driver: "memory"},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(srv *Server, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestServer(t *testing.T) {
	Convey("无外部依赖时启动", t, func() {
		srv, err := New(context.Background(), testConfig())
		So(err, ShouldBeNil)

		Convey("健康检查与请求ID", func() {
			w, _ := do(srv, http.MethodGet, "/health", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)

			w, _ = do(srv, http.MethodGet, "/ready", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("信贷分类", func() {
			w, env := do(srv, http.MethodPost, "/api/v1/credit/classify", map[string]any{
				"credit_score": 72,
				"risk_level":   "中",
			})
			So(w.Code, ShouldEqual, http.StatusOK)

			var result struct {
				Tier     int    `json:"tier"`
				Strategy string `json:"strategy"`
			}
			So(json.Unmarshal(env.Data, &result), ShouldBeNil)
			So(result.Tier, ShouldEqual, 2)

			w, env = do(srv, http.MethodPost, "/api/v1/credit/classify", map[string]any{"risk_level": "中"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Code, ShouldEqual, 40001)
		})

		Convey("企业目录未配置", func() {
			w, env := do(srv, http.MethodGet, "/api/v1/companies", nil)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(env.Code, ShouldEqual, 50301)

			w, env = do(srv, http.MethodPut, "/api/v1/companies/C001", map[string]any{
				"credit_score": 70, "credit_rating": "BBB", "credit_limit": "300-500万", "risk_level": "中",
			})
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(env.Code, ShouldEqual, 50301)

			w, env = do(srv, http.MethodPut, "/api/v1/companies/C001", map[string]any{"credit_rating": "BBB"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Code, ShouldEqual, 40001)
		})

		Convey("会话", func() {
			w, env := do(srv, http.MethodPost, "/api/v1/sessions", map[string]any{
				"company": map[string]any{
					"company_data": map[string]any{"company_id": "C001", "company_name": "青禾新材"},
					"credit_score": 80,
					"risk_level":   "低",
				},
			})
			So(w.Code, ShouldEqual, http.StatusOK)

			var info struct {
				ID      string `json:"id"`
				State   string `json:"state"`
				CanSend bool   `json:"can_send"`
			}
			So(json.Unmarshal(env.Data, &info), ShouldBeNil)
			So(info.ID, ShouldNotBeEmpty)
			So(info.State, ShouldEqual, "idle")
			So(info.CanSend, ShouldBeTrue)

			w, env = do(srv, http.MethodPost, "/api/v1/sessions/"+info.ID+"/messages", map[string]any{"content": "  "})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Code, ShouldEqual, 40002)

			w, env = do(srv, http.MethodPost, "/api/v1/sessions/"+info.ID+"/messages", map[string]any{"kind": "summary"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Code, ShouldEqual, 40005)

			w, _ = do(srv, http.MethodDelete, "/api/v1/sessions/"+info.ID, nil)
			So(w.Code, ShouldEqual, http.StatusOK)

			w, env = do(srv, http.MethodGet, "/api/v1/sessions/"+info.ID, nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(env.Code, ShouldEqual, 40401)
		})

		Convey("未选择企业时拒绝发送", func() {
			_, env := do(srv, http.MethodPost, "/api/v1/sessions", nil)
			var info struct {
				ID string `json:"id"`
			}
			So(json.Unmarshal(env.Data, &info), ShouldBeNil)

			w, env := do(srv, http.MethodPost, "/api/v1/sessions/"+info.ID+"/messages", map[string]any{"content": "你好"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Code, ShouldEqual, 40003)
		})

		Convey("快捷分析列表", func() {
			w, _ := do(srv, http.MethodGet, "/api/v1/shortcuts", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}
