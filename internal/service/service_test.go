package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"creditlens/internal/chat"
	"creditlens/internal/credit"
	"creditlens/internal/model"
	"creditlens/internal/pkg/cache"
	"creditlens/internal/repository"
)

type memStore struct {
	mu        sync.Mutex
	companies map[string]model.Company
	finds     int
}

func newMemStore() *memStore {
	return &memStore{companies: make(map[string]model.Company)}
}

func (m *memStore) Upsert(_ context.Context, c *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID()] = *c
	return nil
}

func (m *memStore) FindByID(_ context.Context, companyID string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	c, ok := m.companies[companyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) List(_ context.Context, _ repository.CompanyFilter, limit, offset int64) ([]*model.Company, int64, error) {
	all, _ := m.All(context.Background())
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	var out []*model.Company
	for i := offset; i < int64(len(all)) && i < offset+limit; i++ {
		c := all[i]
		out = append(out, &c)
	}
	return out, int64(len(all)), nil
}

func (m *memStore) All(_ context.Context) ([]model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) UpdateAssessment(_ context.Context, companyID string, a model.Assessment) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.CompanyName != "" {
		c.CompanyData.CompanyName = a.CompanyName
	}
	c.CreditScore = a.CreditScore
	c.CreditRating = a.CreditRating
	c.CreditLimit = a.CreditLimit
	c.RiskLevel = a.RiskLevel
	m.companies[companyID] = c
	return &c, nil
}

func (m *memStore) Delete(_ context.Context, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[companyID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.companies, companyID)
	return nil
}

// memCache 按原值保存
type memCache struct {
	mu   sync.Mutex
	data map[string]any
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]any)}
}

func (c *memCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	switch d := dest.(type) {
	case *model.Company:
		*d = *(v.(*model.Company))
	case *credit.Stats:
		*d = v.(credit.Stats)
	default:
		return errors.New("unsupported cache type")
	}
	return nil
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type stubBackend struct {
	mu   sync.Mutex
	reqs []chat.Request
	err  error
}

func (b *stubBackend) SendConversation(_ context.Context, req chat.Request) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reqs = append(b.reqs, req)
	return b.err
}

type memTranscripts struct {
	mu    sync.Mutex
	saved []model.Transcript
}

func (m *memTranscripts) Create(_ context.Context, t *model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *t)
	return nil
}

func (m *memTranscripts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func sampleData(id, name string) model.CompanyData {
	return model.CompanyData{
		CompanyID:             id,
		CompanyName:           name,
		Industry:              "高新技术",
		Revenue:               80000,
		NetProfit:             12000,
		TotalAssets:           100000,
		TotalLiabilities:      35000,
		DebtToAssetRatio:      35,
		RAndDRatio:            9,
		PatentCount:           40,
		UpstreamCoreCompanies: 6,
		DownstreamCustomers:   60,
	}
}
