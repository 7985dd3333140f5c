package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetLastStatusCode() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (interface{}, error)
	Remember(name, value string)
}

// RegisterSteps registers assessment-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &assessmentSteps{tc: tc}

	ctx.Step(`^a risk signal for "([^"]*)" with score ([0-9.]+) at ([-0-9.]+), ([-0-9.]+) within (\d+(?:\.\d+)?) km$`, steps.givenSignal)
	ctx.Step(`^I submit the signal$`, steps.submitSignal)
	ctx.Step(`^I remember the bundle id$`, steps.rememberBundleID)
	ctx.Step(`^the decision tier should be "([^"]*)"$`, steps.tierShouldBe)
	ctx.Step(`^the affected SMEs should be "([^"]*)"$`, steps.affectedShouldBe)
	ctx.Step(`^no SMEs should be affected$`, steps.noneAffected)
	ctx.Step(`^every exposure distance should be within the impact radius$`, steps.distancesWithinRadius)
	ctx.Step(`^the violations should name "([^"]*)"$`, steps.violationsShouldName)
	ctx.Step(`^the report should contain "([^"]*)"$`, steps.reportShouldContain)
}

type assessmentSteps struct {
	tc     TestContext
	signal map[string]interface{}
}

func (s *assessmentSteps) givenSignal(ctx context.Context, location string, score, lat, lon, radius float64) error {
	s.signal = map[string]interface{}{
		"risk_score":       score,
		"location":         location,
		"primary_driver":   "Soil_Saturation_Critical",
		"estimated_impact": "$15M_Day",
		"geo_center": map[string]interface{}{
			"lat":              lat,
			"lon":              lon,
			"impact_radius_km": radius,
		},
	}
	return nil
}

func (s *assessmentSteps) submitSignal(ctx context.Context) error {
	if s.signal == nil {
		return fmt.Errorf("no signal defined")
	}
	return s.tc.POST("/v1/assessments", s.signal)
}

func (s *assessmentSteps) rememberBundleID(ctx context.Context) error {
	v, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return fmt.Errorf("response has no bundle id")
	}
	s.tc.Remember("bundle_id", id)
	return nil
}

func (s *assessmentSteps) tierShouldBe(ctx context.Context, want string) error {
	v, err := s.tc.GetResponseField("decision.tier")
	if err != nil {
		return err
	}
	if v != want {
		return fmt.Errorf("expected tier %q, got %v", want, v)
	}
	return nil
}

type exposure struct {
	SME struct {
		ID string `json:"sme_id"`
	} `json:"sme"`
	DistanceKm float64 `json:"distance_km"`
}

func (s *assessmentSteps) exposures() ([]exposure, error) {
	var body struct {
		Exposures []exposure `json:"exposures"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, err
	}
	return body.Exposures, nil
}

func (s *assessmentSteps) affectedShouldBe(ctx context.Context, want string) error {
	exposures, err := s.exposures()
	if err != nil {
		return err
	}
	ids := make([]string, len(exposures))
	for i, e := range exposures {
		ids[i] = e.SME.ID
	}
	if got := strings.Join(ids, ","); got != want {
		return fmt.Errorf("expected affected SMEs %q, got %q", want, got)
	}
	return nil
}

func (s *assessmentSteps) noneAffected(ctx context.Context) error {
	exposures, err := s.exposures()
	if err != nil {
		return err
	}
	if len(exposures) != 0 {
		return fmt.Errorf("expected no exposures, got %d", len(exposures))
	}
	return nil
}

func (s *assessmentSteps) distancesWithinRadius(ctx context.Context) error {
	exposures, err := s.exposures()
	if err != nil {
		return err
	}
	radius := s.signal["geo_center"].(map[string]interface{})["impact_radius_km"].(float64)
	prev := math.Inf(-1)
	for _, e := range exposures {
		if e.DistanceKm > radius {
			return fmt.Errorf("%s at %.3f km is outside %.3f km", e.SME.ID, e.DistanceKm, radius)
		}
		if e.DistanceKm < prev {
			return fmt.Errorf("exposures are not ordered by distance")
		}
		prev = e.DistanceKm
	}
	return nil
}

func (s *assessmentSteps) violationsShouldName(ctx context.Context, fields string) error {
	var body struct {
		Violations []struct {
			Field string `json:"field"`
		} `json:"violations"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return err
	}
	got := make([]string, len(body.Violations))
	for i, v := range body.Violations {
		got[i] = v.Field
	}
	if strings.Join(got, ",") != fields {
		return fmt.Errorf("expected violations %q, got %q", fields, strings.Join(got, ","))
	}
	return nil
}

func (s *assessmentSteps) reportShouldContain(ctx context.Context, text string) error {
	if !strings.Contains(string(s.tc.GetLastResponseBody()), text) {
		return fmt.Errorf("report does not contain %q", text)
	}
	return nil
}
