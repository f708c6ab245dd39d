package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"

	"satnam/internal/onboarding/handler"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/strlist"
)

// TestContext is what the session steps need from the scenario context.
type TestContext interface {
	CreateSession(ctx context.Context, coordinatorName, sessionName string, participants []string) error
	SessionID(name string) (id.SessionID, error)
	Do(ctx context.Context, method, path string, body any, authenticated bool) error
	DecodeResponse(v any) error
	ResponseField(field string) (any, error)
}

// RegisterSteps registers session setup, control and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}

	ctx.Step(`^coordinator "([^"]*)" has a batch session "([^"]*)" with participants "([^"]*)"$`, steps.createSession)

	ctx.Step(`^I request session "([^"]*)"$`, steps.requestSession)
	ctx.Step(`^I request session "([^"]*)" without a token$`, steps.requestSessionWithoutToken)
	ctx.Step(`^I list my resumable sessions$`, steps.listResumable)
	ctx.Step(`^I pause session "([^"]*)"$`, steps.pauseSession)
	ctx.Step(`^I resume session "([^"]*)"$`, steps.resumeSession)
	ctx.Step(`^I cancel session "([^"]*)"$`, steps.cancelSession)
	ctx.Step(`^I cancel session "([^"]*)" without confirming$`, steps.cancelSessionWithoutConfirming)

	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the session should list (\d+) participants$`, steps.sessionShouldListParticipants)
	ctx.Step(`^the listing should contain session "([^"]*)"$`, steps.listingShouldContain)
	ctx.Step(`^the listing should not contain session "([^"]*)"$`, steps.listingShouldNotContain)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) createSession(ctx context.Context, coordinator, session, participants string) error {
	return s.tc.CreateSession(ctx, coordinator, session, strlist.Split(participants, ","))
}

func (s *sessionSteps) path(session, suffix string) (string, error) {
	sid, err := s.tc.SessionID(session)
	if err != nil {
		return "", err
	}
	return "/onboarding/sessions/" + sid.String() + suffix, nil
}

func (s *sessionSteps) send(ctx context.Context, method, session, suffix string, body any, authenticated bool) error {
	path, err := s.path(session, suffix)
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, method, path, body, authenticated)
}

func (s *sessionSteps) requestSession(ctx context.Context, session string) error {
	return s.send(ctx, http.MethodGet, session, "", nil, true)
}

func (s *sessionSteps) requestSessionWithoutToken(ctx context.Context, session string) error {
	return s.send(ctx, http.MethodGet, session, "", nil, false)
}

func (s *sessionSteps) listResumable(ctx context.Context) error {
	return s.tc.Do(ctx, http.MethodGet, "/onboarding/sessions", nil, true)
}

func (s *sessionSteps) pauseSession(ctx context.Context, session string) error {
	return s.send(ctx, http.MethodPost, session, "/pause", nil, true)
}

func (s *sessionSteps) resumeSession(ctx context.Context, session string) error {
	return s.send(ctx, http.MethodPost, session, "/resume", nil, true)
}

func (s *sessionSteps) cancelSession(ctx context.Context, session string) error {
	return s.send(ctx, http.MethodPost, session, "/cancel", handler.CancelRequest{Confirm: true}, true)
}

func (s *sessionSteps) cancelSessionWithoutConfirming(ctx context.Context, session string) error {
	return s.send(ctx, http.MethodPost, session, "/cancel", handler.CancelRequest{}, true)
}

func (s *sessionSteps) responseFieldShouldBe(_ context.Context, field, want string) error {
	got, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s %q, got %v", field, want, got)
	}
	return nil
}

func (s *sessionSteps) sessionShouldListParticipants(_ context.Context, want int) error {
	var resp handler.SessionResponse
	if err := s.tc.DecodeResponse(&resp); err != nil {
		return err
	}
	if len(resp.Participants) != want {
		return fmt.Errorf("expected %d participants, got %d", want, len(resp.Participants))
	}
	return nil
}

func (s *sessionSteps) listed(session string) (bool, error) {
	sid, err := s.tc.SessionID(session)
	if err != nil {
		return false, err
	}
	var resp handler.ListResponse
	if err := s.tc.DecodeResponse(&resp); err != nil {
		return false, err
	}
	for _, summary := range resp.Sessions {
		if summary.SessionID == sid.String() {
			return true, nil
		}
	}
	return false, nil
}

func (s *sessionSteps) listingShouldContain(_ context.Context, session string) error {
	found, err := s.listed(session)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session %q missing from the listing", session)
	}
	return nil
}

func (s *sessionSteps) listingShouldNotContain(_ context.Context, session string) error {
	found, err := s.listed(session)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("session %q should not be listed", session)
	}
	return nil
}
