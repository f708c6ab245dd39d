package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is what the auth steps need from the scenario context.
type TestContext interface {
	SignIn(coordinatorName, sessionName string) error
	Status() int
	ResponseField(field string) (any, error)
}

// RegisterSteps registers token and response status steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I am signed in as coordinator "([^"]*)"$`, steps.signIn)
	ctx.Step(`^I am signed in as coordinator "([^"]*)" for session "([^"]*)"$`, steps.signInForSession)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) signIn(_ context.Context, coordinator string) error {
	return s.tc.SignIn(coordinator, "")
}

func (s *authSteps) signInForSession(_ context.Context, coordinator, session string) error {
	return s.tc.SignIn(coordinator, session)
}

func (s *authSteps) responseStatusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *authSteps) errorCodeShouldBe(_ context.Context, want string) error {
	got, err := s.tc.ResponseField("error")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected error code %q, got %v", want, got)
	}
	return nil
}
