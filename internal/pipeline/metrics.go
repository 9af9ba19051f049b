package pipeline

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/researchd/internal/pipeline"

// Metrics for pipeline runs
var (
	runStartedCounter   metric.Int64Counter
	runCompletedCounter metric.Int64Counter
	runFailedCounter    metric.Int64Counter
	stageDuration       metric.Float64Histogram
	stageErrorCounter   metric.Int64Counter
	restartCounter      metric.Int64Counter
	repairCounter       metric.Int64Counter
)

// initMetrics initializes OpenTelemetry metrics for the pipeline.
// This is called once during package initialization.
func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error

	runStartedCounter, err = meter.Int64Counter(
		"researchd.pipeline.runs.started",
		metric.WithDescription("Total number of pipeline runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create run started counter: %v", err))
	}

	runCompletedCounter, err = meter.Int64Counter(
		"researchd.pipeline.runs.completed",
		metric.WithDescription("Total number of pipeline runs completed"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create run completed counter: %v", err))
	}

	runFailedCounter, err = meter.Int64Counter(
		"researchd.pipeline.runs.failed",
		metric.WithDescription("Total number of pipeline runs that finished with a recorded error"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create run failed counter: %v", err))
	}

	stageDuration, err = meter.Float64Histogram(
		"researchd.pipeline.stage.duration",
		metric.WithDescription("Duration of individual stage executions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create stage duration histogram: %v", err))
	}

	stageErrorCounter, err = meter.Int64Counter(
		"researchd.pipeline.stage.errors",
		metric.WithDescription("Number of stage execution errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create stage error counter: %v", err))
	}

	restartCounter, err = meter.Int64Counter(
		"researchd.pipeline.planning.restarts",
		metric.WithDescription("Number of planning restarts, by reason"),
		metric.WithUnit("{restart}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create restart counter: %v", err))
	}

	repairCounter, err = meter.Int64Counter(
		"researchd.pipeline.validation.repairs",
		metric.WithDescription("Number of validation repair attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create repair counter: %v", err))
	}
}

func init() {
	initMetrics()
}
