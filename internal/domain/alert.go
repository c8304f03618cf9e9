package domain

import (
	"fmt"
	"time"
)

// AlertType classifies why an alert was raised.
type AlertType string

const AlertRiskThreshold AlertType = "RISK_THRESHOLD"

// DefaultAlertThreshold is the lowest score that raises an alert.
const DefaultAlertThreshold = 6.0

// Alert notifies a storage operator that an assessment crossed the alert
// threshold.
type Alert struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessment_id"`
	Type         AlertType  `json:"type"`
	Severity     RiskLevel  `json:"severity"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Actions      []string   `json:"actions"`
	Location     Coordinate `json:"location"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// AlertTTL is how long an alert stays relevant.
const AlertTTL = 48 * time.Hour

// NewAlert builds the threshold alert for an assessment and its
// recommendation.
func NewAlert(id, assessmentID string, loc Coordinate, a RiskAssessment, rec Recommendation, now time.Time) Alert {
	title, message := alertText(a)
	return Alert{
		ID:           id,
		AssessmentID: assessmentID,
		Type:         AlertRiskThreshold,
		Severity:     a.RiskLevel,
		Title:        title,
		Message:      message,
		Actions:      append([]string(nil), rec.Actions...),
		Location:     loc,
		CreatedAt:    now,
		ExpiresAt:    now.Add(AlertTTL),
	}
}

func alertText(a RiskAssessment) (string, string) {
	score := fmt.Sprintf("Risk Score: %.1f/10", a.RiskScore)
	switch a.RiskLevel {
	case RiskCritical:
		return "CRITICAL AFLATOXIN RISK", "Immediate action required! " + score
	case RiskHigh:
		return "HIGH AFLATOXIN RISK", "Take preventive action within 24 hours. " + score
	default:
		return "MODERATE AFLATOXIN RISK", "Monitor closely and prepare. " + score
	}
}
