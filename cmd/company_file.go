package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"creditlens/internal/model"
	"creditlens/internal/service"
)

// readCompanyData 读取企业原始数据，支持单个对象或数组
func readCompanyData(path string) ([]model.CompanyData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []model.CompanyData
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return list, nil
	}

	var d model.CompanyData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return []model.CompanyData{d}, nil
}

// loadCompany 读取对话企业。已评分的企业直接使用，原始数据先评分
func loadCompany(path string, companies *service.CompanyService) (*model.Company, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var c model.Company
	if err := json.Unmarshal(raw, &c); err == nil && c.ID() != "" {
		return &c, nil
	}

	data, err := readCompanyData(path)
	if err != nil {
		return nil, err
	}
	if len(data) != 1 {
		return nil, fmt.Errorf("%s: expected one company, got %d", path, len(data))
	}
	scored, err := companies.Score(data[0])
	if err != nil {
		return nil, err
	}
	return &scored, nil
}
