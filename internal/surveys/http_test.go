package surveys

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sautihq/sauti-backend/pkg/config"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "surveys-test", Output: io.Discard})
}

func newTestPlatform(t *testing.T, handler http.HandlerFunc) Platform {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	platform, err := NewHTTPPlatform(context.Background(), config.SurveysConfig{
		BaseURL:      server.URL,
		ServiceToken: "svc-token",
	}, testLogger())
	require.NoError(t, err)
	return platform
}

func TestSurveyOwner(t *testing.T) {
	ownerID := uuid.New()
	surveyID := uuid.New()

	platform := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/v1/surveys/"+surveyID.String(), r.URL.Path)
		require.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"owner_user_id":"` + ownerID.String() + `"}}`))
	})

	got, err := platform.SurveyOwner(context.Background(), surveyID)
	require.NoError(t, err)
	require.Equal(t, ownerID, got)
}

func TestSurveyOwnerNotFound(t *testing.T) {
	platform := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := platform.SurveyOwner(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestResponseExists(t *testing.T) {
	surveyID := uuid.New()
	participantID := uuid.New()

	platform := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/v1/surveys/"+surveyID.String()+"/responses/"+participantID.String(), r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	exists, err := platform.ResponseExists(context.Background(), surveyID, participantID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestResponseExistsMissing(t *testing.T) {
	platform := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	exists, err := platform.ResponseExists(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPlatformUpstreamFailure(t *testing.T) {
	platform := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := platform.ResponseExists(context.Background(), uuid.New(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
