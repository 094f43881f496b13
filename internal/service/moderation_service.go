package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/school-community-api/internal/models"
	appErrors "github.com/noah-isme/school-community-api/pkg/errors"
)

// ContentClassifier is the black-box moderation classifier boundary. Its
// failures are handled by the fail-open policy in Review, never surfaced to
// users.
type ContentClassifier interface {
	Classify(ctx context.Context, content string) (*models.ClassifierVerdict, error)
}

type violationRepository interface {
	Create(ctx context.Context, record *models.ViolationRecord) error
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]models.ViolationRecord, error)
}

// ReviewDecision is the outcome of running content through moderation.
type ReviewDecision struct {
	Allowed    bool                    `json:"allowed"`
	Violation  *models.ViolationRecord `json:"violation,omitempty"`
	Punishment *models.Punishment      `json:"punishment,omitempty"`
}

// Base credibility penalty per violation type.
var basePenalties = map[models.ViolationType]float64{
	models.ViolationSpam:           2,
	models.ViolationMisinformation: 5,
	models.ViolationHarassment:     8,
	models.ViolationViolence:       12,
	models.ViolationHateSpeech:     15,
}

// Severity multipliers applied to the base penalty.
var severityMultipliers = map[models.ViolationSeverity]float64{
	models.SeverityLow:      1,
	models.SeverityMedium:   2,
	models.SeverityHigh:     3,
	models.SeverityCritical: 5,
}

// Punishment maps a violation verdict and the user's prior violation count
// into a sanction. It is pure and writes nothing; callers apply the output.
// Each prior violation amplifies the penalty by 20%.
func Punishment(violationType models.ViolationType, severity models.ViolationSeverity, priorViolations int) models.Punishment {
	base := basePenalties[violationType]
	multiplier := severityMultipliers[severity]
	if multiplier == 0 {
		multiplier = 1
	}
	penalty := base * multiplier * (1 + 0.2*float64(priorViolations))

	switch {
	case severity == models.SeverityCritical || priorViolations >= 5:
		return models.Punishment{Type: models.PunishmentPermBan, CredibilityPenalty: capPenalty(penalty, 50)}
	case severity == models.SeverityHigh || priorViolations >= 3:
		hours := 72
		if severity == models.SeverityHigh {
			hours = 168
		}
		return models.Punishment{Type: models.PunishmentTempBan, CredibilityPenalty: capPenalty(penalty, 30), BanDurationHours: &hours}
	case penalty >= 10 || priorViolations >= 2:
		return models.Punishment{Type: models.PunishmentCredibility, CredibilityPenalty: capPenalty(penalty, 20)}
	default:
		return models.Punishment{Type: models.PunishmentWarning, CredibilityPenalty: capPenalty(penalty, 5)}
	}
}

func capPenalty(penalty, limit float64) float64 {
	if penalty > limit {
		return limit
	}
	return penalty
}

// ModerationService runs submitted content through the classifier and,
// for flagged content, records the violation and applies the escalation
// policy's sanction.
type ModerationService struct {
	classifier  ContentClassifier
	violations  violationRepository
	credibility *CredibilityService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewModerationService creates an instance of ModerationService.
func NewModerationService(classifier ContentClassifier, violations violationRepository, credibility *CredibilityService, metrics *MetricsService, logger *zap.Logger) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{classifier: classifier, violations: violations, credibility: credibility, metrics: metrics, logger: logger}
}

// Review classifies content and applies the punishment for flagged
// submissions. Classifier failures follow the failOpen policy: the content
// is allowed and the error only logged. This trades strict safety for
// availability and is a deliberate, named behavior.
func (s *ModerationService) Review(ctx context.Context, userID, content string) (*ReviewDecision, error) {
	if s.classifier == nil {
		return &ReviewDecision{Allowed: true}, nil
	}

	verdict, err := s.classifier.Classify(ctx, content)
	if err != nil {
		return s.failOpen(userID, err), nil
	}
	if verdict == nil || !verdict.Flagged {
		s.metrics.RecordModerationOutcome(true)
		return &ReviewDecision{Allowed: true}, nil
	}

	priors, err := s.violations.CountByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count prior violations")
	}

	record := &models.ViolationRecord{
		UserID:   userID,
		Type:     verdict.Type,
		Severity: verdict.Severity,
		Reason:   verdict.Reason,
	}
	if err := s.violations.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record violation")
	}

	punishment := Punishment(verdict.Type, verdict.Severity, priors)
	if punishment.CredibilityPenalty > 0 {
		if _, _, err := s.credibility.ApplyPenalty(ctx, userID, punishment.CredibilityPenalty); err != nil {
			return nil, err
		}
	}

	s.logger.Info("content flagged",
		zap.String("user_id", userID),
		zap.String("violation_type", string(verdict.Type)),
		zap.String("severity", string(verdict.Severity)),
		zap.Int("prior_violations", priors),
		zap.String("punishment", string(punishment.Type)))

	allowed := punishment.Type == models.PunishmentWarning || punishment.Type == models.PunishmentCredibility
	s.metrics.RecordModerationOutcome(allowed)
	return &ReviewDecision{Allowed: allowed, Violation: record, Punishment: &punishment}, nil
}

// History returns a user's violation records, newest first.
func (s *ModerationService) History(ctx context.Context, userID string) ([]models.ViolationRecord, error) {
	records, err := s.violations.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list violations")
	}
	return records, nil
}

// failOpen is the named availability-over-safety policy for classifier
// outages: content is allowed, the failure logged for operators.
func (s *ModerationService) failOpen(userID string, err error) *ReviewDecision {
	s.logger.Warn("moderation classifier unavailable, allowing content",
		zap.String("user_id", userID),
		zap.Error(err))
	return &ReviewDecision{Allowed: true}
}
