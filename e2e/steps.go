package e2e

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps binds every step definition to the scenario context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	steps := &gateSteps{tc: tc}

	ctx.Step(`^a running credit gate$`, steps.aRunningCreditGate)
	ctx.Step(`^a fresh guest device$`, steps.aFreshGuestDevice)
	ctx.Step(`^the device requests authorization for "([^"]*)"$`, steps.requestAuthorization)
	ctx.Step(`^the device uses a credit for "([^"]*)"$`, steps.useCredit)
	ctx.Step(`^the device checks the rate limit for "([^"]*)" (\d+) times$`, steps.checkRateLimitNTimes)
	ctx.Step(`^the next rate limit check for "([^"]*)" should return (\d+)$`, steps.nextCheckShouldReturn)
	ctx.Step(`^the device fetches its balance$`, steps.fetchBalance)
	ctx.Step(`^the request should be allowed$`, steps.requestShouldBeAllowed)
	ctx.Step(`^the request should be denied$`, steps.requestShouldBeDenied)
	ctx.Step(`^the response message should mention signing up$`, steps.messageShouldMentionSignUp)
	ctx.Step(`^the response message should mention trying again later$`, steps.messageShouldMentionRetry)
	ctx.Step(`^the balance should be a guest balance with (\d+) remaining document credit$`, steps.balanceShouldBeGuest)
}

type gateSteps struct {
	tc *TestContext
}

func (s *gateSteps) aRunningCreditGate() error {
	if err := s.tc.GET("/healthz"); err != nil {
		return err
	}
	if s.tc.LastStatus() != 200 {
		return fmt.Errorf("healthz returned %d", s.tc.LastStatus())
	}
	return nil
}

func (s *gateSteps) aFreshGuestDevice() error {
	return s.tc.ResetDevice()
}

func (s *gateSteps) requestAuthorization(action string) error {
	return s.tc.POST("/authorize", map[string]any{"action": action})
}

func (s *gateSteps) useCredit(kind string) error {
	return s.tc.POST("/credits/use", map[string]any{"kind": kind})
}

func (s *gateSteps) checkRateLimitNTimes(action string, n int) error {
	for i := 0; i < n; i++ {
		if err := s.tc.POST("/ratelimit/check", map[string]any{"action": action}); err != nil {
			return err
		}
		if s.tc.LastStatus() != 200 {
			return fmt.Errorf("check %d returned %d", i+1, s.tc.LastStatus())
		}
	}
	return nil
}

func (s *gateSteps) nextCheckShouldReturn(action string, expected int) error {
	if err := s.tc.POST("/ratelimit/check", map[string]any{"action": action}); err != nil {
		return err
	}
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected %d, got %d", expected, s.tc.LastStatus())
	}
	return nil
}

func (s *gateSteps) fetchBalance() error {
	return s.tc.GET("/credits")
}

func (s *gateSteps) requestShouldBeAllowed() error {
	return s.verdictAllowed(true)
}

func (s *gateSteps) requestShouldBeDenied() error {
	return s.verdictAllowed(false)
}

func (s *gateSteps) verdictAllowed(want bool) error {
	body, err := s.tc.LastJSON()
	if err != nil {
		return err
	}
	allowed, _ := body["allowed"].(bool)
	if allowed != want {
		return fmt.Errorf("expected allowed=%v, got %v (body %v)", want, allowed, body)
	}
	return nil
}

func (s *gateSteps) messageShouldMentionSignUp() error {
	return s.messageContains("Sign up")
}

func (s *gateSteps) messageShouldMentionRetry() error {
	return s.messageContains("try again")
}

func (s *gateSteps) messageContains(fragment string) error {
	body, err := s.tc.LastJSON()
	if err != nil {
		return err
	}
	message, _ := body["message"].(string)
	if !strings.Contains(message, fragment) {
		return fmt.Errorf("expected message containing %q, got %q", fragment, message)
	}
	return nil
}

func (s *gateSteps) balanceShouldBeGuest(remaining int) error {
	body, err := s.tc.LastJSON()
	if err != nil {
		return err
	}
	if guest, _ := body["guest"].(bool); !guest {
		return fmt.Errorf("expected a guest balance, got %v", body)
	}
	got, ok := body["document_remaining"].(float64)
	if !ok || int(got) != remaining {
		return fmt.Errorf("expected %d remaining document credits, got %v", remaining, body["document_remaining"])
	}
	return nil
}
