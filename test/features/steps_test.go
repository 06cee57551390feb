// Package features wires godog step definitions for the agent state
// machine and evaluation orchestrator resume scenarios, grounded on the
// teacher's test/integration/cli main_test.go TestSuite/InitializeScenario
// pattern but run in-process against the agent/eval packages directly
// rather than against a built CLI binary.
package features

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/giant-wsi/giant/internal/eval"
	"github.com/giant-wsi/giant/test/features/support"
)

var testCtx *support.Context

func resetScenario() {
	testCtx = support.NewContext()
}

func aRegisteredSlideOfSize(name string, width, height int) error {
	testCtx.RegisterSlide(name, width, height)
	return nil
}

func anUnregisteredSlide(name string) error {
	testCtx.CropEng = nil
	return nil
}

func aTurnBudgetOfSteps(steps int) error {
	testCtx.MaxSteps = steps
	return nil
}

func theModelScriptedToRespondWith(body *godog.DocString) error {
	testCtx.ScriptResponses(body.Content)
	return nil
}

var lastSlidePath string

// theAgentNavigates runs the agent against whichever slide path was last
// registered (or left deliberately unregistered) in a prior step.
func theAgentNavigates(question string) error {
	testCtx.RunAgent(lastSlidePath, question)
	return nil
}

func theRunStatusIs(status string) error {
	got := string(testCtx.AgentResult.Status)
	if got != status {
		return fmt.Errorf("run status = %s, want %s", got, status)
	}
	return nil
}

func theAnswerIs(answer string) error {
	if testCtx.AgentResult.Answer != answer {
		return fmt.Errorf("answer = %q, want %q", testCtx.AgentResult.Answer, answer)
	}
	return nil
}

func theTrajectoryHasTurns(n int) error {
	if testCtx.AgentResult.Trajectory == nil {
		return fmt.Errorf("trajectory is nil, want %d turns", n)
	}
	got := len(testCtx.AgentResult.Trajectory.Turns)
	if got != n {
		return fmt.Errorf("trajectory has %d turns, want %d", got, n)
	}
	return nil
}

func theFailureReasonMentions(substr string) error {
	if !strings.Contains(testCtx.AgentResult.FailureInfo, substr) {
		return fmt.Errorf("failure info %q does not mention %q", testCtx.AgentResult.FailureInfo, substr)
	}
	return nil
}

func aBenchmarkItemWithTruthLabel(id, truth string) error {
	testCtx.RegisterSlide("slide-"+id, 4096, 4096)
	testCtx.Items = append(testCtx.Items, eval.BenchmarkItem{
		BenchmarkName: "demo",
		BenchmarkID:   id,
		WSIPath:       "slide-" + id,
		Prompt:        "Is there cancer?",
		MetricType:    eval.MetricAccuracy,
		TruthLabel:    truth,
	})
	return nil
}

func theOrchestratorHasAlreadyCompletedARunWithRunID(runID string) error {
	testCtx.RunOrchestratorOnce(runID)
	if testCtx.OrchErr != nil {
		return fmt.Errorf("seed run failed: %w", testCtx.OrchErr)
	}
	return nil
}

func theOrchestratorRunsOnceWithRunID(runID string) error {
	testCtx.RunOrchestratorOnce(runID)
	return testCtx.OrchErr
}

func theOrchestratorRunsAgainWithRunIDAndNoFurtherScriptedResponses(runID string) error {
	testCtx.Provider.Responses = nil
	testCtx.RunOrchestratorOnce(runID)
	return testCtx.OrchErr
}

func theRunCompletesOfItems(completed, total int) error {
	if testCtx.OrchResult.Completed != completed || testCtx.OrchResult.Total != total {
		return fmt.Errorf("completed/total = %d/%d, want %d/%d",
			testCtx.OrchResult.Completed, testCtx.OrchResult.Total, completed, total)
	}
	return nil
}

func theRunAccuracyIs(want float64) error {
	if testCtx.OrchResult.Accuracy != want {
		return fmt.Errorf("accuracy = %v, want %v", testCtx.OrchResult.Accuracy, want)
	}
	return nil
}

func theModelWasNotCalledAgain() error {
	if testCtx.Provider.Calls() != testCtx.CallsBefore {
		return fmt.Errorf("model was called %d more time(s), want 0", testCtx.Provider.Calls()-testCtx.CallsBefore)
	}
	return nil
}

func InitializeScenario(sc *godog.ScenarioContext) {
	var scenarioDir string

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		resetScenario()
		dir, err := os.MkdirTemp("", "giant-features-*")
		if err != nil {
			return ctx, err
		}
		scenarioDir = dir
		testCtx.CheckpointDir = dir
		testCtx.OutputDir = dir
		return ctx, nil
	})
	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		if scenarioDir != "" {
			_ = os.RemoveAll(scenarioDir)
		}
		return ctx, err
	})

	sc.Step(`^a registered slide "([^"]*)" of size (\d+) by (\d+)$`, func(name, w, h string) error {
		width, _ := strconv.Atoi(w)
		height, _ := strconv.Atoi(h)
		lastSlidePath = name
		return aRegisteredSlideOfSize(name, width, height)
	})
	sc.Step(`^an unregistered slide "([^"]*)"$`, func(name string) error {
		lastSlidePath = name
		return anUnregisteredSlide(name)
	})
	sc.Step(`^a turn budget of (\d+) steps?$`, func(n int) error { return aTurnBudgetOfSteps(n) })
	sc.Step(`^the model scripted to respond with$`, theModelScriptedToRespondWith)
	sc.Step(`^the agent navigates the slide with question "([^"]*)"$`, theAgentNavigates)
	sc.Step(`^the run status is "([^"]*)"$`, theRunStatusIs)
	sc.Step(`^the answer is "([^"]*)"$`, theAnswerIs)
	sc.Step(`^the trajectory has (\d+) turns?$`, theTrajectoryHasTurns)
	sc.Step(`^the failure reason mentions "([^"]*)"$`, theFailureReasonMentions)

	sc.Step(`^a benchmark item "([^"]*)" with truth label "([^"]*)"$`, aBenchmarkItemWithTruthLabel)
	sc.Step(`^the orchestrator has already completed a run with run id "([^"]*)"$`, theOrchestratorHasAlreadyCompletedARunWithRunID)
	sc.Step(`^the orchestrator runs once with run id "([^"]*)"$`, theOrchestratorRunsOnceWithRunID)
	sc.Step(`^the orchestrator runs again with run id "([^"]*)" and no further scripted responses$`, theOrchestratorRunsAgainWithRunIDAndNoFurtherScriptedResponses)
	sc.Step(`^the run completes (\d+) of (\d+) items$`, theRunCompletesOfItems)
	sc.Step(`^the run accuracy is (\d+(?:\.\d+)?)$`, func(s string) error {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		return theRunAccuracyIs(f)
	})
	sc.Step(`^the model was not called again$`, theModelWasNotCalledAgain)
}

// TestFeatures runs every .feature file in this directory through godog,
// with fresh in-process fixtures (mock decoder, mock model) per scenario.
func TestFeatures(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read features dir: %v", err)
	}

	found := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".feature") {
			continue
		}
		found = true
		featurePath := filepath.Join(".", e.Name())

		t.Run(e.Name(), func(t *testing.T) {
			suite := godog.TestSuite{
				ScenarioInitializer: InitializeScenario,
				Options: &godog.Options{
					Format: "pretty",
					Paths:  []string{featurePath},
				},
			}
			if suite.Run() != 0 {
				t.Fatalf("non-zero status returned for %s", featurePath)
			}
		})
	}

	if !found {
		t.Fatalf("no .feature files found")
	}
}
