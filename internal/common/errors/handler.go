// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports a failed search job back to the broker.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HandleJobError fails the job while a retryable error still has job
// retries to spend, and throws a BPMN error otherwise so the process can
// route to its fallback path.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	retries := remainingRetries(bpmnErr.Retries, job.Retries)

	fields := map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        bpmnErr.Code,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retries":          retries,
		"workflowInstance": job.ProcessInstanceKey,
	}
	h.logger.Error("search job failed", fields)

	vars, _ := json.Marshal(bpmnErr.ToErrorVariables())
	var sendErr error
	if retries > 0 {
		cmd := client.NewFailJobCommand().JobKey(job.Key).Retries(int32(retries)).ErrorMessage(bpmnErr.Message)
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, sendErr = withVars.Send(ctx)
		} else {
			_, sendErr = cmd.Send(ctx)
		}
	} else {
		cmd := client.NewThrowErrorCommand().JobKey(job.Key).ErrorCode(bpmnErr.Code).ErrorMessage(bpmnErr.Message)
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, sendErr = withVars.Send(ctx)
		} else {
			_, sendErr = cmd.Send(ctx)
		}
	}
	if sendErr != nil {
		fields["sendError"] = sendErr.Error()
		h.logger.Error("failed to report job error", fields)
	}
}

// remainingRetries caps the recommended retry count by what the job has left.
func remainingRetries(recommended int, jobRetries int32) int {
	if recommended <= 0 || jobRetries <= 0 {
		return 0
	}
	if left := int(jobRetries) - 1; left < recommended {
		return left
	}
	return recommended
}
