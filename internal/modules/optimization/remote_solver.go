package optimization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// RemoteSolver delegates an objective to an external convex-optimization
// microservice over HTTP. It satisfies the same Solver seam as the
// in-process solver, so deployments with the microservice available can
// switch via configuration.
type RemoteSolver struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewRemoteSolver creates a remote solver client.
func NewRemoteSolver(baseURL string, log zerolog.Logger) *RemoteSolver {
	return &RemoteSolver{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second, // optimization can take time
		},
		log: log.With().Str("client", "solver").Logger(),
	}
}

// solveRequest mirrors the microservice's request schema.
type solveRequest struct {
	Objective       string      `json:"objective"`
	Symbols         []string    `json:"symbols"`
	ExpectedReturns []float64   `json:"expected_returns"`
	Covariance      [][]float64 `json:"covariance_matrix"`
	RiskFreeRate    float64     `json:"risk_free_rate"`
	RiskAversion    float64     `json:"risk_aversion"`
	MarketNeutral   bool        `json:"market_neutral"`
}

// solveResponse is the microservice's standard envelope.
type solveResponse struct {
	Success bool               `json:"success"`
	Weights map[string]float64 `json:"weights"`
	Error   *string            `json:"error"`
}

// Solve implements Solver.
func (c *RemoteSolver) Solve(objective Objective, est *Estimates, cfg Config) (map[string]float64, error) {
	req := solveRequest{
		Objective:       string(objective),
		Symbols:         est.Symbols,
		ExpectedReturns: est.ExpectedReturns,
		Covariance:      est.Covariance,
		RiskFreeRate:    cfg.RiskFreeRate,
		RiskAversion:    cfg.RiskAversion,
		MarketNeutral:   cfg.MarketNeutral,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solve request: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/optimize", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("solver service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read solver response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solver service returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed solveResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse solver response: %w", err)
	}
	if !parsed.Success {
		reason := "solver reported failure"
		if parsed.Error != nil {
			reason = *parsed.Error
		}
		c.log.Warn().Str("objective", string(objective)).Str("reason", reason).Msg("Remote solve failed")
		return nil, &domain.InfeasibleError{Objective: string(objective), Reason: reason}
	}

	return parsed.Weights, nil
}
