package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/assessment"
	"github.com/couchcryptid/harvest-risk-service/internal/domain"
)

// Header keys set on every output event.
const (
	HeaderEventType   = "event_type"
	HeaderRiskLevel   = "risk_level"
	HeaderProcessedAt = "processed_at"
	HeaderRequestKey  = "request_key"
)

// Event types carried in HeaderEventType.
const (
	EventTypeAssessment = "assessment"
	EventTypeAlert      = "alert"
)

// Assessor runs one risk assessment. *assessment.Engine satisfies it.
type Assessor interface {
	Assess(ctx context.Context, req assessment.Request) (assessment.Report, error)
}

// AssessmentTransformer decodes requests, assesses them, and emits the report
// plus an alert when the score crosses the alert threshold.
type AssessmentTransformer struct {
	assessor        Assessor
	assessmentTopic string
	alertTopic      string
}

// NewTransformer creates an AssessmentTransformer writing to the given topics.
func NewTransformer(a Assessor, assessmentTopic, alertTopic string) *AssessmentTransformer {
	return &AssessmentTransformer{
		assessor:        a,
		assessmentTopic: assessmentTopic,
		alertTopic:      alertTopic,
	}
}

func (t *AssessmentTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	var req assessment.Request
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	report, err := t.assessor.Assess(ctx, req)
	if err != nil {
		return nil, err
	}

	key := raw.Key
	if len(key) == 0 {
		key = []byte(report.Location.Key())
	}

	value, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	out := []domain.OutputEvent{{
		Topic:   t.assessmentTopic,
		Key:     key,
		Value:   value,
		Headers: headers(EventTypeAssessment, report.Assessment.RiskLevel, report.CreatedAt, raw.Key),
	}}

	if report.Alert != nil {
		alertValue, err := json.Marshal(report.Alert)
		if err != nil {
			return nil, fmt.Errorf("encode alert: %w", err)
		}
		out = append(out, domain.OutputEvent{
			Topic:   t.alertTopic,
			Key:     key,
			Value:   alertValue,
			Headers: headers(EventTypeAlert, report.Alert.Severity, report.Alert.CreatedAt, raw.Key),
		})
	}
	return out, nil
}

func headers(eventType string, level domain.RiskLevel, at time.Time, requestKey []byte) map[string]string {
	h := map[string]string{
		HeaderEventType:   eventType,
		HeaderRiskLevel:   string(level),
		HeaderProcessedAt: at.Format(time.RFC3339),
	}
	if len(requestKey) > 0 {
		h[HeaderRequestKey] = string(requestKey)
	}
	return h
}
