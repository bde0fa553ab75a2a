package e2e

import (
	"os"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("CREDITGATE_E2E_URL")
	if baseURL == "" {
		t.Skip("CREDITGATE_E2E_URL not set; skipping e2e suite")
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			tc, err := NewTestContext(baseURL)
			if err != nil {
				t.Fatalf("test context: %v", err)
			}
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("e2e scenarios failed")
	}
}
