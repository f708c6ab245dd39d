package e2e

import (
	"github.com/cucumber/godog"

	"satnam/e2e/steps/auth"
	"satnam/e2e/steps/session"
)

// RegisterSteps registers all step definitions from the step packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	auth.RegisterSteps(ctx, tc)
	session.RegisterSteps(ctx, tc)
}
