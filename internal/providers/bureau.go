// internal/providers/bureau.go
package providers

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/zenwallet/loan-origination/internal/config"
	"github.com/zenwallet/loan-origination/internal/models"
)

// BureauResult is the normalized output of a credit bureau check.
type BureauResult struct {
	Score         int              `json:"score"`
	FraudRisk     models.FraudRisk `json:"fraud_risk"`
	ExistingDebts float64          `json:"existing_debts"`
	Provider      string           `json:"provider"`
}

// BureauProvider queries an external credit bureau for a CPF.
type BureauProvider interface {
	Name() string
	CheckCredit(ctx context.Context, cpf string) (*BureauResult, error)
}

// NewBureauProvider selects the real provider when enabled, the
// deterministic mock otherwise.
func NewBureauProvider(cfg *config.BureauConfig) BureauProvider {
	if cfg.Enabled {
		return &SerasaProvider{cfg: cfg}
	}
	return &MockSerasaProvider{}
}

// MockSerasaProvider returns simulated bureau data derived from the CPF
// digits, so repeated checks on the same CPF are consistent.
type MockSerasaProvider struct{}

func (p *MockSerasaProvider) Name() string { return "serasa_mock" }

func (p *MockSerasaProvider) CheckCredit(ctx context.Context, cpf string) (*BureauResult, error) {
	sum := 0
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		}
	}

	score := 300 + ((sum * 17) % 700)

	var fraudRisk models.FraudRisk
	switch {
	case score > 700:
		fraudRisk = models.FraudRiskLow
	case score > 400:
		fraudRisk = models.FraudRiskMedium
	default:
		fraudRisk = models.FraudRiskHigh
	}

	existingDebts := math.Round(float64(1000-score) * 5.5)

	logrus.WithFields(logrus.Fields{
		"cpf":      maskCPF(cpf),
		"score":    score,
		"provider": p.Name(),
	}).Info("Mock credit check")

	return &BureauResult{
		Score:         score,
		FraudRisk:     fraudRisk,
		ExistingDebts: existingDebts,
		Provider:      p.Name(),
	}, nil
}

// SerasaProvider is the production bureau integration.
// TODO: implement the real Serasa Experian score API once credentials exist.
type SerasaProvider struct {
	cfg *config.BureauConfig
}

func (p *SerasaProvider) Name() string { return "serasa" }

func (p *SerasaProvider) CheckCredit(ctx context.Context, cpf string) (*BureauResult, error) {
	return nil, fmt.Errorf("serasa provider not yet implemented, set SERASA_ENABLED=false to use mock")
}

func maskCPF(cpf string) string {
	if len(cpf) < 4 {
		return "***"
	}
	return "***" + cpf[len(cpf)-4:]
}
