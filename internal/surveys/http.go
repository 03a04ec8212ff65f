package surveys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sautihq/sauti-backend/pkg/config"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("surveys base url is required")
	errLoggerRequired  = errors.New("surveys logger is required")
)

// httpPlatform resolves survey ownership and completion against the survey
// platform's internal API.
type httpPlatform struct {
	httpClient   *http.Client
	baseURL      string
	serviceToken string
	logg         *logger.Logger
}

// NewHTTPPlatform wires the survey platform client used in production.
func NewHTTPPlatform(ctx context.Context, cfg config.SurveysConfig, logg *logger.Logger) (Platform, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &httpPlatform{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		serviceToken: strings.TrimSpace(cfg.ServiceToken),
		logg:         logg,
	}
	logg.Info(ctx, "survey platform client initialized")
	return p, nil
}

type surveyEnvelope struct {
	Data struct {
		OwnerUserID uuid.UUID `json:"owner_user_id"`
	} `json:"data"`
}

func (p *httpPlatform) SurveyOwner(ctx context.Context, surveyID uuid.UUID) (uuid.UUID, error) {
	status, body, err := p.get(ctx, fmt.Sprintf("/internal/v1/surveys/%s", surveyID))
	if err != nil {
		return uuid.Nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "survey not found")
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("survey platform returned status %d", status))
	}

	var envelope surveyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode survey response")
	}
	if envelope.Data.OwnerUserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeDependency, "survey response missing owner")
	}
	return envelope.Data.OwnerUserID, nil
}

func (p *httpPlatform) ResponseExists(ctx context.Context, surveyID, participantID uuid.UUID) (bool, error) {
	status, _, err := p.get(ctx, fmt.Sprintf("/internal/v1/surveys/%s/responses/%s", surveyID, participantID))
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("survey platform returned status %d", status))
}

func (p *httpPlatform) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build survey platform request")
	}
	req.Header.Set("Accept", "application/json")
	if p.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.serviceToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call survey platform")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read survey platform response")
	}
	return resp.StatusCode, body, nil
}
