package company

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"creditlens/internal/credit"
	"creditlens/internal/model"
	"creditlens/internal/repository"
	"creditlens/internal/service"
)

type oneCompanyStore struct {
	company model.Company
}

func (s *oneCompanyStore) Upsert(context.Context, *model.Company) error { return nil }

func (s *oneCompanyStore) FindByID(_ context.Context, companyID string) (*model.Company, error) {
	if companyID != s.company.ID() {
		return nil, repository.ErrNotFound
	}
	c := s.company
	return &c, nil
}

func (s *oneCompanyStore) List(context.Context, repository.CompanyFilter, int64, int64) ([]*model.Company, int64, error) {
	return nil, 0, nil
}

func (s *oneCompanyStore) All(context.Context) ([]model.Company, error) {
	return []model.Company{s.company}, nil
}

func (s *oneCompanyStore) UpdateAssessment(_ context.Context, companyID string, a model.Assessment) (*model.Company, error) {
	if companyID != s.company.ID() {
		return nil, repository.ErrNotFound
	}
	s.company.CreditScore = a.CreditScore
	s.company.CreditRating = a.CreditRating
	s.company.CreditLimit = a.CreditLimit
	s.company.RiskLevel = a.RiskLevel
	c := s.company
	return &c, nil
}

func (s *oneCompanyStore) Delete(context.Context, string) error { return nil }

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func put(r *gin.Engine, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestUpdateCompany(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("人工调整评估结果", t, func() {
		store := &oneCompanyStore{company: credit.Assess(model.CompanyData{
			CompanyID: "C001", CompanyName: "青禾新材", Industry: "制造业",
		})}
		r := gin.New()
		r.PUT("/companies/:company_id", NewHandler(service.NewCompanyService(store, nil)).UpdateCompany)

		w, env := put(r, "/companies/C001", map[string]any{
			"credit_score": 72, "credit_rating": "BBB", "credit_limit": "300-500万", "risk_level": "中等",
		})
		So(w.Code, ShouldEqual, http.StatusOK)
		var got CompanyView
		So(json.Unmarshal(env.Data, &got), ShouldBeNil)
		So(got.CreditRating, ShouldEqual, "BBB")
		So(got.RiskLevel, ShouldEqual, "中")
		So(got.Classification.Tier, ShouldEqual, 2)

		Convey("非法评级返回 40006", func() {
			w, env := put(r, "/companies/C001", map[string]any{
				"credit_score": 72, "credit_rating": "Z", "credit_limit": "300-500万", "risk_level": "中",
			})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(env.Code, ShouldEqual, 40006)
		})

		Convey("不存在的企业返回 40402", func() {
			w, env := put(r, "/companies/C404", map[string]any{
				"credit_score": 72, "credit_rating": "BBB", "credit_limit": "300-500万", "risk_level": "中",
			})
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(env.Code, ShouldEqual, 40402)
		})
	})
}
