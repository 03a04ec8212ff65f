package surveys

import (
	"context"

	"github.com/google/uuid"
)

// Platform is the narrow view of the survey system the reward engine
// consumes. Implementations live with the survey modules; tests use fakes.
type Platform interface {
	// SurveyOwner returns the user that owns the survey.
	SurveyOwner(ctx context.Context, surveyID uuid.UUID) (uuid.UUID, error)
	// ResponseExists reports whether the participant completed the survey.
	ResponseExists(ctx context.Context, surveyID, participantID uuid.UUID) (bool, error)
}
