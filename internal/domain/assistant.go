package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Gerador de texto (LLM)
// ============================================================

// GenerationRequest is the payload sent to the text-generation service.
// When Schema is set, the service must answer with a JSON object matching it.
type GenerationRequest struct {
	RequestID string          `json:"request_id"`
	Task      string          `json:"task"`
	Prompt    string          `json:"prompt"`
	Context   []string        `json:"context,omitempty"`
	Schema    json.RawMessage `json:"schema,omitempty"`
}

// GenerationResult is the response of the text-generation service.
type GenerationResult struct {
	RequestID  string          `json:"request_id"`
	Text       string          `json:"text,omitempty"`
	JSON       json.RawMessage `json:"json,omitempty"`
	TokensUsed TokenUsage      `json:"tokens_used"`
}

// TokenUsage rastreia o consumo de tokens do LLM para monitoramento de custos.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ============================================================
// API: resumo de riscos, DDS e relatório de investigação
// ============================================================

// RiskSummary é a resposta do POST /v1/dashboard/summary.
type RiskSummary struct {
	RequestID   string    `json:"requestId"`
	Summary     string    `json:"summary"`
	Risks       []string  `json:"risks"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DDSRequest é o body do POST /v1/dds.
type DDSRequest struct {
	Topic           string `json:"topic"`
	Audience        string `json:"audience,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// DDSScript is the structured daily safety briefing returned by the generator.
type DDSScript struct {
	Title     string   `json:"title"`
	Script    string   `json:"script"`
	KeyPoints []string `json:"keyPoints"`
}

// InvestigationReport is an AI narrative for a saved investigation.
type InvestigationReport struct {
	InvestigationID string    `json:"investigationId"`
	Narrative       string    `json:"narrative"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
