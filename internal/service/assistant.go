package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"
	"github.com/boddenberg/supervisor-bfa-go/internal/risk"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Generation tasks understood by the text-generation service.
const (
	TaskRiskSummary         = "risk_summary"
	TaskDDS                 = "dds_script"
	TaskInvestigationReport = "investigation_report"
)

const (
	defaultDDSMinutes = 5
	maxDDSMinutes     = 30
	noRisksSummary    = "Nenhum risco identificado no momento."
)

var ddsSchema = json.RawMessage(`{
  "type": "object",
  "required": ["title", "script", "keyPoints"],
  "properties": {
    "title": {"type": "string"},
    "script": {"type": "string"},
    "keyPoints": {"type": "array", "items": {"type": "string"}}
  }
}`)

// Assistant orchestrates the AI-assisted features: the dashboard risk
// summary, DDS scripts and investigation report narratives. Only the latest
// request per (uid, topic) may deliver its response.
type Assistant struct {
	generator      port.TextGenerator
	dashboard      *DashboardService
	investigations port.InvestigationStore
	guard          *requestGuard
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewAssistant creates the assistant service with all dependencies injected.
func NewAssistant(
	generator port.TextGenerator,
	dashboard *DashboardService,
	investigations port.InvestigationStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Assistant {
	return &Assistant{
		generator:      generator,
		dashboard:      dashboard,
		investigations: investigations,
		guard:          newRequestGuard(),
		metrics:        metrics,
		logger:         logger,
	}
}

// generate calls the text generator under the stale-response guard for topic.
func (a *Assistant) generate(ctx context.Context, topic string, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	req.RequestID = a.guard.begin(topic)

	start := time.Now()
	res, err := a.generator.Generate(ctx, req)
	a.metrics.RecordRequestDuration("textgen_"+req.Task, time.Since(start))

	if !a.guard.finish(topic, req.RequestID) {
		a.metrics.IncrGeneration("stale")
		a.logger.Info("discarding stale generation",
			zap.String("topic", topic),
			zap.String("request_id", req.RequestID),
		)
		return nil, &domain.ErrStaleResponse{RequestID: req.RequestID}
	}
	if err != nil {
		a.metrics.IncrGeneration("error")
		a.metrics.IncrExternalError("textgen")
		a.logger.Error("text generation failed",
			zap.String("task", req.Task),
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("text generation: %w", err)
	}

	a.metrics.IncrGeneration("success")
	a.metrics.RecordTokens(res.TokensUsed.PromptTokens, res.TokensUsed.CompletionTokens)
	return res, nil
}

// SummarizeRisks asks the generator for a short prioritised summary of the
// dashboard risks. The risk messages are the only data sent.
func (a *Assistant) SummarizeRisks(ctx context.Context, uid string) (*domain.RiskSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Assistant.SummarizeRisks")
	defer span.End()

	d, err := a.dashboard.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	messages := risk.Messages(d.Risks)
	span.SetAttributes(attribute.Int("risks", len(messages)))

	if len(messages) == 0 {
		return &domain.RiskSummary{Summary: noRisksSummary, Risks: []string{}, GeneratedAt: timeNow()}, nil
	}

	res, err := a.generate(ctx, "summary:"+uid, &domain.GenerationRequest{
		Task: TaskRiskSummary,
		Prompt: "Você é um assistente de supervisão industrial. Resuma em até 5 frases os riscos abaixo, " +
			"começando pelos mais críticos, e sugira uma ação imediata para cada um.",
		Context: messages,
	})
	if err != nil {
		return nil, err
	}

	return &domain.RiskSummary{
		RequestID:   res.RequestID,
		Summary:     strings.TrimSpace(res.Text),
		Risks:       messages,
		GeneratedAt: timeNow(),
	}, nil
}

// GenerateDDS produces a structured daily safety briefing script.
func (a *Assistant) GenerateDDS(ctx context.Context, uid string, in domain.DDSRequest) (*domain.DDSScript, error) {
	ctx, span := tracer.Start(ctx, "Assistant.GenerateDDS")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	in.Topic = strings.TrimSpace(in.Topic)
	if in.Topic == "" {
		return nil, &domain.ErrValidation{Field: "topic", Message: "topic is required"}
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = defaultDDSMinutes
	}
	if in.DurationMinutes > maxDDSMinutes {
		return nil, &domain.ErrValidation{Field: "durationMinutes", Message: fmt.Sprintf("must be at most %d", maxDDSMinutes)}
	}
	audience := in.Audience
	if audience == "" {
		audience = "operadores do turno"
	}

	res, err := a.generate(ctx, "dds:"+uid, &domain.GenerationRequest{
		Task: TaskDDS,
		Prompt: fmt.Sprintf("Escreva um DDS (Diálogo Diário de Segurança) de %d minutos sobre %q para %s. "+
			"Use linguagem simples e termine com os pontos-chave.", in.DurationMinutes, in.Topic, audience),
		Schema: ddsSchema,
	})
	if err != nil {
		return nil, err
	}

	var script domain.DDSScript
	if err := json.Unmarshal(res.JSON, &script); err != nil {
		return nil, &domain.ErrExternalService{Service: "textgen", Err: fmt.Errorf("decode dds script: %w", err)}
	}
	if script.Title == "" || script.Script == "" {
		return nil, &domain.ErrExternalService{Service: "textgen", Err: errors.New("dds script missing title or body")}
	}
	if script.KeyPoints == nil {
		script.KeyPoints = []string{}
	}
	return &script, nil
}

// InvestigationReport writes a narrative for a saved investigation.
func (a *Assistant) InvestigationReport(ctx context.Context, uid, id string) (*domain.InvestigationReport, error) {
	ctx, span := tracer.Start(ctx, "Assistant.InvestigationReport")
	defer span.End()
	span.SetAttributes(attribute.String("investigation.id", id))

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	inv, err := a.investigations.GetInvestigation(ctx, uid, id)
	if err != nil {
		return nil, err
	}

	res, err := a.generate(ctx, "report:"+uid+":"+id, &domain.GenerationRequest{
		Task: TaskInvestigationReport,
		Prompt: "Redija um relatório objetivo de investigação de erro humano com: descrição da ocorrência, " +
			"análise de causa e plano de ação. Não atribua culpa individual.",
		Context: investigationFacts(*inv),
	})
	if err != nil {
		return nil, err
	}

	return &domain.InvestigationReport{
		InvestigationID: inv.ID,
		Narrative:       strings.TrimSpace(res.Text),
		GeneratedAt:     timeNow(),
	}, nil
}

// investigationFacts flattens an investigation into prompt context lines.
func investigationFacts(inv domain.HumanErrorInvestigation) []string {
	o := inv.Occurrence
	facts := []string{
		fmt.Sprintf("Colaborador: %s", o.EmployeeName),
		fmt.Sprintf("Data: %s", o.Date),
		fmt.Sprintf("Ocorrência: %s", o.Description),
	}
	if o.Area != "" {
		facts = append(facts, fmt.Sprintf("Área: %s", o.Area))
	}
	if o.Shift != "" {
		facts = append(facts, fmt.Sprintf("Turno: %s", o.Shift))
	}
	for _, a := range inv.TWTTP {
		facts = append(facts, fmt.Sprintf("TWTTP - %s: %s", a.Question, a.Answer))
	}
	if adv := inv.TWTTPAdvanced; adv != nil {
		facts = append(facts,
			fmt.Sprintf("Conhecimento ausente: %s", adv.MissingKnowledge),
			fmt.Sprintf("Causa raiz: %s", adv.RootCause),
			fmt.Sprintf("Plano de retreinamento: %s", adv.RetrainingPlan),
		)
	}
	if h := inv.HERCA; h != nil {
		if f := h.Factors(); len(f) > 0 {
			facts = append(facts, fmt.Sprintf("Fatores HERCA: %s", strings.Join(f, ", ")))
		}
		if h.Notes != "" {
			facts = append(facts, fmt.Sprintf("Observações HERCA: %s", h.Notes))
		}
	}
	p := inv.ActionPlan
	facts = append(facts, fmt.Sprintf("Ação: %s (responsável: %s, prazo: %s)", p.Action, p.Responsible, p.Deadline))
	return facts
}
