package e2e

import (
	"github.com/cucumber/godog"

	"oact/e2e/steps/assessment"
	"oact/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register assessment-specific steps
	assessment.RegisterSteps(ctx, tc)
}
