// internal/services/compliance_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/propshare/propshare-backend/internal/config"
)

// ComplianceDecision is the yes/no answer to "can this user invest this
// amount now", with optional advisory warnings.
type ComplianceDecision struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type ComplianceService interface {
	CheckLimits(ctx context.Context, userID uuid.UUID, amount float64) (*ComplianceDecision, error)
}

// HTTPComplianceService queries the external compliance API.
type HTTPComplianceService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPComplianceService(cfg *config.Config) *HTTPComplianceService {
	return &HTTPComplianceService{
		baseURL: strings.TrimRight(cfg.Compliance.BaseURL, "/"),
		apiKey:  cfg.Compliance.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.Compliance.CheckTimeout) * time.Second,
		},
	}
}

func (s *HTTPComplianceService) CheckLimits(ctx context.Context, userID uuid.UUID, amount float64) (*ComplianceDecision, error) {
	endpoint := fmt.Sprintf("%s/api/v1/limits/check?user_id=%s&amount=%s",
		s.baseURL, userID, url.QueryEscape(fmt.Sprintf("%.2f", amount)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build compliance request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compliance check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compliance service returned %d", resp.StatusCode)
	}

	var decision ComplianceDecision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("failed to decode compliance response: %w", err)
	}

	return &decision, nil
}
