// internal/workers/search/record-feedback/handler.go
package recordfeedback

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/signals"
)

const (
	TaskType = "record-feedback"
)

type Handler struct {
	config    *Config
	store     signals.Store
	db        *sql.DB
	publisher Publisher
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler accepts a nil db or publisher; ratings are then only logged
// or not fanned out.
func NewHandler(config *Config, store signals.Store, db *sql.DB, publisher Publisher, log logger.Logger) *Handler {
	if store == nil {
		store = signals.Noop{}
	}
	return &Handler{
		config:    config,
		store:     store,
		db:        db,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:       time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.URL == "" && input.Verdict == "" && input.Helpful == nil && input.Reason == "" {
		return nil, errors.NewInvalidRequestError("nothing to record")
	}
	out := &Output{}

	if input.URL != "" {
		if err := h.RecordClick(ctx, input.URL); err != nil {
			return nil, err
		}
		out.Clicked = true
	}

	if input.Verdict != "" {
		if err := h.RecordVerdict(ctx, input.Query, input.Entity, input.Verdict); err != nil {
			return nil, err
		}
		out.Verdict = input.Verdict
	}

	if input.Helpful != nil || input.Reason != "" {
		fb := Feedback{
			Query:   input.Query,
			Helpful: input.Helpful != nil && *input.Helpful,
			Reason:  input.Reason,
			Entity:  input.Entity,
			Verdict: input.Verdict,
		}
		id, msgID, err := h.RecordFeedback(ctx, fb)
		if err != nil {
			return nil, err
		}
		out.FeedbackID = id
		out.MessageID = msgID
	}
	return out, nil
}

// RecordClick counts a click on the citation's domain.
func (h *Handler) RecordClick(ctx context.Context, rawURL string) error {
	host := signals.Host(rawURL)
	if host == "" {
		return errors.NewInvalidRequestError("url has no host")
	}
	if err := h.store.RecordClicked(ctx, host); err != nil {
		return errors.NewSignalStoreUnavailableError(err)
	}
	h.logger.Debug("click recorded", map[string]interface{}{"host": host})
	return nil
}

// RecordVerdict raises the prefer or avoid weight of entity for query.
func (h *Handler) RecordVerdict(ctx context.Context, query, entity, verdict string) error {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(entity) == "" {
		return errors.NewInvalidRequestError("query and entity are required for a verdict")
	}
	var err error
	switch verdict {
	case VerdictPrefer:
		err = h.store.Prefer(ctx, query, entity)
	case VerdictAvoid:
		err = h.store.Avoid(ctx, query, entity)
	default:
		return errors.NewInvalidRequestError("verdict must be prefer or avoid")
	}
	if err != nil {
		return errors.NewSignalStoreUnavailableError(err)
	}
	h.logger.Info("entity verdict recorded", map[string]interface{}{"entity": entity, "verdict": verdict})
	return nil
}

// RecordFeedback stores a rating and publishes it. Without a database the
// rating is logged only. A publish failure is logged and not returned.
func (h *Handler) RecordFeedback(ctx context.Context, fb Feedback) (int64, string, error) {
	if strings.TrimSpace(fb.Query) == "" {
		return 0, "", errors.NewInvalidRequestError("query is required")
	}
	fb.CreatedAt = h.now().UTC()

	if h.db != nil {
		err := h.db.QueryRowContext(ctx, `
			INSERT INTO answer_feedback (query, helpful, reason, entity, verdict, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			fb.Query, fb.Helpful, nullable(fb.Reason), nullable(fb.Entity), nullable(fb.Verdict), fb.CreatedAt,
		).Scan(&fb.ID)
		if err != nil {
			return 0, "", errors.NewDatabaseInsertFailedError(err)
		}
	} else {
		h.logger.Info("feedback", map[string]interface{}{
			"query":   fb.Query,
			"helpful": fb.Helpful,
			"reason":  fb.Reason,
		})
	}

	var msgID string
	if h.publisher != nil {
		id, err := h.publisher.PublishJSON(ctx, h.config.PublishEventType, fb)
		if err != nil {
			stdErr := errors.NewNotificationSendFailedError("sns", err)
			h.logger.Warn("feedback publish failed", map[string]interface{}{"error": stdErr.Details})
		} else {
			msgID = id
		}
	}
	return fb.ID, msgID, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
