package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// AIMetrics is returned by GET /v1/metrics/ai.
type AIMetrics struct {
	TotalRequests         int64   `json:"totalRequests"`
	StaleDiscarded        int64   `json:"staleDiscarded"`
	ErrorRate             float64 `json:"errorRate"`
	PromptTokens          int64   `json:"promptTokens"`
	CompletionTokens      int64   `json:"completionTokens"`
	AvgTokensPerRequest   float64 `json:"avgTokensPerRequest"`
	DashboardCacheHitRate float64 `json:"dashboardCacheHitRate"`
	Period                string  `json:"period"`
}
