package domain

// Priority ranks how quickly a recommendation should be acted on.
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Recommendation is the action plan for an assessment.
type Recommendation struct {
	RiskLevel RiskLevel `json:"risk_level"`
	RiskScore float64   `json:"risk_score"`
	Actions   []string  `json:"actions"`
	Priority  Priority  `json:"priority"`
}

var actionsByLevel = map[RiskLevel][]string{
	RiskCritical: {
		"IMMEDIATE ACTION REQUIRED",
		"Deploy moisture-absorbing desiccants (silica gel/calcium chloride) in storage area",
		"Ensure maximum ventilation - open all vents and use fans if available",
		"Move produce to cooler, drier storage immediately if possible",
		"Reduce storage density to improve air circulation",
		"Consider emergency drying using mechanical dryers",
		"Test samples for aflatoxin contamination within 24 hours",
	},
	RiskHigh: {
		"HIGH RISK - Take preventive action within 24 hours",
		"Increase ventilation in storage area",
		"Deploy drying beads or moisture control agents",
		"Monitor temperature and humidity every 6 hours",
		"Inspect produce for visible mold or discoloration",
		"Prepare for possible relocation to better storage",
	},
	RiskModerate: {
		"MODERATE RISK - Monitor closely and prepare",
		"Check storage ventilation systems are functioning",
		"Keep drying materials ready for deployment",
		"Monitor weather forecasts for humidity spikes",
		"Inspect storage area for moisture accumulation",
		"Plan for increased monitoring over next 48 hours",
	},
	RiskLow: {
		"LOW RISK - Maintain current practices",
		"Continue routine monitoring",
		"Keep storage area clean and well-ventilated",
		"Monitor for changes in weather conditions",
	},
}

// Recommend returns the fixed action list for the assessment's level. Levels
// outside the known set get the LOW list.
func Recommend(a RiskAssessment) Recommendation {
	actions, ok := actionsByLevel[a.RiskLevel]
	if !ok {
		actions = actionsByLevel[RiskLow]
	}
	return Recommendation{
		RiskLevel: a.RiskLevel,
		RiskScore: a.RiskScore,
		Actions:   append([]string(nil), actions...),
		Priority:  PriorityForScore(a.RiskScore),
	}
}

// PriorityForScore derives urgency from the numeric score.
func PriorityForScore(score float64) Priority {
	switch {
	case score >= CriticalThreshold:
		return PriorityUrgent
	case score >= HighThreshold:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
