package camunda

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/metrics"
)

// RunJob decodes the job variables into I, runs exec under timeout and
// either completes the job with the output or routes the error through the
// error handler.
func RunJob[I any, O any](
	client worker.JobClient,
	job entities.Job,
	taskType string,
	timeout time.Duration,
	log logger.Logger,
	exec func(ctx context.Context, input *I) (*O, error),
) {
	start := time.Now()
	log = log.WithFields(map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	log.Info("processing job", nil)
	handler := errors.NewErrorHandler(log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var input I
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.ErrCodeInvalidRequest)).Inc()
		handler.HandleJobError(ctx, client, job, errors.NewInvalidRequestError("parse input: "+err.Error()))
		return
	}

	output, err := exec(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.Normalize(err).Code)).Inc()
		handler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
	log.Info("job completed", map[string]interface{}{"duration": time.Since(start).String()})
}
