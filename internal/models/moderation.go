package models

import "time"

// ViolationType classifies flagged content.
type ViolationType string

const (
	ViolationSpam           ViolationType = "SPAM"
	ViolationMisinformation ViolationType = "MISINFORMATION"
	ViolationHarassment     ViolationType = "HARASSMENT"
	ViolationViolence       ViolationType = "VIOLENCE"
	ViolationHateSpeech     ViolationType = "HATE_SPEECH"
)

// ViolationSeverity grades how serious a violation is.
type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "LOW"
	SeverityMedium   ViolationSeverity = "MEDIUM"
	SeverityHigh     ViolationSeverity = "HIGH"
	SeverityCritical ViolationSeverity = "CRITICAL"
)

// ViolationRecord is an append-only row written on every flagged submission.
type ViolationRecord struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	Type      ViolationType     `db:"violation_type" json:"violation_type"`
	Severity  ViolationSeverity `db:"severity" json:"severity"`
	Reason    string            `db:"reason" json:"reason"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// PunishmentType is the escalation ladder's decision.
type PunishmentType string

const (
	PunishmentWarning     PunishmentType = "WARNING"
	PunishmentCredibility PunishmentType = "CREDIBILITY_REDUCTION"
	PunishmentTempBan     PunishmentType = "TEMPORARY_BAN"
	PunishmentPermBan     PunishmentType = "PERMANENT_BAN"
)

// Punishment describes the sanction for a violation. Callers apply it; the
// policy function itself writes nothing.
type Punishment struct {
	Type               PunishmentType `json:"type"`
	CredibilityPenalty float64        `json:"credibility_penalty"`
	BanDurationHours   *int           `json:"ban_duration_hours,omitempty"`
}

// ClassifierVerdict is the black-box moderation classifier's output.
type ClassifierVerdict struct {
	Flagged  bool              `json:"flagged"`
	Type     ViolationType     `json:"violation_type"`
	Severity ViolationSeverity `json:"severity"`
	Reason   string            `json:"reason"`
}
