// internal/pipeline/runner_test.go
package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-agent/internal/models"
	"compliance-agent/internal/templates"
)

// ==========================
// Fakes
// ==========================

type fakeStages struct {
	factCheckInput string
	contentFact    string
	reviewInput    string
	reflectionArgs [2]string
	stageDelay     time.Duration

	// cancelDuringRAG, when set, is invoked while stage 2 runs, the
	// way a client disconnect cancels the request context mid-flight.
	cancelDuringRAG context.CancelFunc
}

func result(stage int, name, output string) models.StageResult {
	return models.StageResult{Stage: stage, Name: name, Status: models.StageStatusSuccess, Output: output}
}

// degraded mirrors what a real handler produces once its model call
// fails under a dead context: canned output with status error.
func degraded(stage int, name string) models.StageResult {
	return models.StageResult{Stage: stage, Name: name, Status: models.StageStatusError, Output: "canned " + name}
}

func (f *fakeStages) topicStage(ctx context.Context, topic string) models.StageResult {
	time.Sleep(f.stageDelay)
	if ctx.Err() != nil {
		return degraded(1, "Topic Understanding")
	}
	return result(1, "Topic Understanding", "analysis of "+topic)
}

type topicFn func(ctx context.Context, topic string) models.StageResult

func (fn topicFn) Execute(ctx context.Context, topic string) models.StageResult { return fn(ctx, topic) }

type factCheckFn func(ctx context.Context, topic, ragOutput string) models.StageResult

func (fn factCheckFn) Execute(ctx context.Context, topic, ragOutput string) models.StageResult {
	return fn(ctx, topic, ragOutput)
}

type contentFn func(ctx context.Context, topic, ragOutput, factCheck string) models.StageResult

func (fn contentFn) Execute(ctx context.Context, topic, ragOutput, factCheck string) models.StageResult {
	return fn(ctx, topic, ragOutput, factCheck)
}

type reviewFn func(ctx context.Context, content string) models.StageResult

func (fn reviewFn) Execute(ctx context.Context, content string) models.StageResult {
	return fn(ctx, content)
}

type reflectionFn func(ctx context.Context, topic, content, reviewOutput string) models.StageResult

func (fn reflectionFn) Execute(ctx context.Context, topic, content, reviewOutput string) models.StageResult {
	return fn(ctx, topic, content, reviewOutput)
}

type testLogger struct{}

func (testLogger) Info(msg string, fields map[string]interface{})  {}
func (testLogger) Error(msg string, fields map[string]interface{}) {}

func newTestRunner(t *testing.T, f *fakeStages, ragOutput, reflectionOutput string, timeout time.Duration) *Runner {
	t.Helper()
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)

	return NewRunner(
		topicFn(f.topicStage),
		topicFn(func(ctx context.Context, topic string) models.StageResult {
			time.Sleep(f.stageDelay)
			if f.cancelDuringRAG != nil {
				f.cancelDuringRAG()
			}
			if ctx.Err() != nil {
				return degraded(2, "RAG Search")
			}
			return result(2, "RAG Search", ragOutput)
		}),
		factCheckFn(func(ctx context.Context, topic, rag string) models.StageResult {
			f.factCheckInput = rag
			if ctx.Err() != nil {
				return degraded(3, "Fact Checker")
			}
			return result(3, "Fact Checker", "fact check report")
		}),
		contentFn(func(ctx context.Context, topic, rag, factCheck string) models.StageResult {
			f.contentFact = factCheck
			if ctx.Err() != nil {
				return degraded(4, "Content Generator")
			}
			return result(4, "Content Generator", "the final post")
		}),
		reviewFn(func(ctx context.Context, content string) models.StageResult {
			f.reviewInput = content
			if ctx.Err() != nil {
				return degraded(5, "Reviewer")
			}
			return result(5, "Reviewer", "review notes")
		}),
		reflectionFn(func(ctx context.Context, topic, content, review string) models.StageResult {
			f.reflectionArgs = [2]string{content, review}
			if ctx.Err() != nil {
				return degraded(6, "Reflection")
			}
			return result(6, "Reflection", reflectionOutput)
		}),
		nil,
		renderer,
		timeout,
		testLogger{},
	)
}

// ==========================
// Tests
// ==========================

func TestRun_ProducesSixStagesInOrder(t *testing.T) {
	f := &fakeStages{}
	r := newTestRunner(t, f, "research context", "Accuracy Score: 91\nEngagement Score: 87", time.Minute)

	res := r.Run(context.Background(), "crypto licensing")

	require.Len(t, res.Stages, 6)
	for i, stage := range res.Stages {
		assert.Equal(t, i+1, stage.Stage)
	}
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "crypto licensing", res.Topic)
	assert.Equal(t, "the final post", res.FinalContent)
	assert.Equal(t, 91, res.AccuracyScore)
	assert.Equal(t, 87, res.EngagementScore)
	assert.False(t, res.CompletedAt.Before(res.StartedAt))
}

func TestRun_WiresStageDependencies(t *testing.T) {
	f := &fakeStages{}
	r := newTestRunner(t, f, "research context\nSource: https://fincen.gov/guidance", "", time.Minute)

	res := r.Run(context.Background(), "crypto licensing")

	assert.Contains(t, f.factCheckInput, "research context")
	assert.Equal(t, "the final post", f.reviewInput)
	assert.Equal(t, [2]string{"the final post", "review notes"}, f.reflectionArgs)
	assert.Equal(t, []string{"https://fincen.gov/guidance"}, res.Sources)
}

// The content generator runs alongside the fact checker, so it never
// sees the fact-check report.
func TestRun_ContentGeneratorGetsEmptyFactCheck(t *testing.T) {
	f := &fakeStages{}
	r := newTestRunner(t, f, "research context", "", time.Minute)

	r.Run(context.Background(), "crypto licensing")

	assert.Empty(t, f.contentFact)
}

func TestRun_DefaultScoresWhenReflectionSilent(t *testing.T) {
	f := &fakeStages{}
	r := newTestRunner(t, f, "research context", "no scores here", time.Minute)

	res := r.Run(context.Background(), "crypto licensing")

	assert.Equal(t, 85, res.AccuracyScore)
	assert.Equal(t, 80, res.EngagementScore)
}

func TestRun_PanicDegradesToPartialResult(t *testing.T) {
	f := &fakeStages{}
	r := newTestRunner(t, f, "research context", "", time.Minute)
	r.review = reviewFn(func(ctx context.Context, content string) models.StageResult {
		panic("reviewer glue broke")
	})

	res := r.Run(context.Background(), "crypto licensing")

	require.Len(t, res.Stages, 4)
	assert.Equal(t, "Analysis of crypto licensing completed with partial results.", res.FinalContent)
	assert.Equal(t, 70, res.AccuracyScore)
	assert.Equal(t, 65, res.EngagementScore)
}

// An expired overall timeout degrades the remaining stages to their
// canned content; it never shortens the stage list.
func TestRun_OverallTimeoutKeepsSixStages(t *testing.T) {
	f := &fakeStages{stageDelay: 50 * time.Millisecond}
	r := newTestRunner(t, f, "research context", "", 10*time.Millisecond)

	res := r.Run(context.Background(), "crypto licensing")

	require.Len(t, res.Stages, 6)
	for i, stage := range res.Stages {
		assert.Equal(t, i+1, stage.Stage)
		assert.Equal(t, models.StageStatusError, stage.Status)
		assert.NotEmpty(t, stage.Output)
	}
	assert.Equal(t, res.Stages[3].Output, res.FinalContent)
	assert.Equal(t, 85, res.AccuracyScore)
	assert.Equal(t, 80, res.EngagementScore)
	assert.Empty(t, res.Sources)
}

// A client disconnect cancels the request context mid-run; the stage
// list still comes back complete, with the late stages degraded.
func TestRun_CancelledContextKeepsSixStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &fakeStages{cancelDuringRAG: cancel}
	r := newTestRunner(t, f, "research context", "", 0)

	res := r.Run(ctx, "crypto licensing")

	require.Len(t, res.Stages, 6)
	for i, stage := range res.Stages {
		assert.Equal(t, i+1, stage.Stage)
	}
	for _, stage := range res.Stages[2:] {
		assert.Equal(t, models.StageStatusError, stage.Status)
	}
	assert.Equal(t, res.Stages[3].Output, res.FinalContent)
	assert.Equal(t, 85, res.AccuracyScore)
	assert.Equal(t, 80, res.EngagementScore)
}
