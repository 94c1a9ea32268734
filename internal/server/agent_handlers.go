package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vnfinlab/vnquant/internal/clients/agent"
	"github.com/vnfinlab/vnquant/internal/domain"
)

// AgentQueryRequest is a natural-language question over one or more
// tickers' cached statements.
type AgentQueryRequest struct {
	Prompt  string   `json:"prompt"`
	Tickers []string `json:"tickers"`
}

// handleAgentQuery forwards a question plus statement frames to the
// analysis agent. The agent is strictly read-only over data this
// service already holds; no computation depends on its answer.
// POST /api/agent/query
func (s *Server) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	var req AgentQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if len(req.Tickers) == 0 {
		s.writeError(w, http.StatusBadRequest, "At least one ticker is required")
		return
	}

	var frames []agent.Frame
	for _, raw := range req.Tickers {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}
		for _, st := range []domain.StatementType{domain.StatementIncome, domain.StatementBalance} {
			table, err := s.cfg.MarketData.GetStatementTable(ticker, st, domain.PeriodYear)
			if err != nil || len(table.Rows) == 0 {
				continue
			}
			frames = append(frames, statementFrame(ticker, st, table))
		}
	}
	if len(frames) == 0 {
		s.writeError(w, http.StatusNotFound, "No statements available for the requested tickers")
		return
	}

	resp, err := s.cfg.Agent.Query(agent.QueryRequest{Prompt: req.Prompt, Frames: frames})
	if err != nil {
		s.log.Error().Err(err).Msg("Agent query failed")
		s.writeError(w, http.StatusBadGateway, "Agent query failed")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// statementFrame flattens a statement table into the agent's columnar
// frame format: a year column plus one column per provider field, with
// nulls where a year lacks a value.
func statementFrame(ticker string, st domain.StatementType, table domain.StatementTable) agent.Frame {
	columnNames := map[string]bool{}
	for _, row := range table.Rows {
		for name := range row.Values {
			columnNames[name] = true
		}
	}

	columns := make(map[string][]interface{}, len(columnNames)+1)
	years := make([]interface{}, len(table.Rows))
	for i, row := range table.Rows {
		years[i] = row.Year
	}
	columns["Year"] = years

	for name := range columnNames {
		values := make([]interface{}, len(table.Rows))
		for i, row := range table.Rows {
			if v, ok := row.Values[name]; ok {
				values[i] = v
			}
		}
		columns[name] = values
	}

	return agent.Frame{
		Name:    ticker + "/" + string(st),
		Columns: columns,
	}
}
