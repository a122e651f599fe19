// internal/workers/search/classify-intent/handler.go
package classifyintent

import (
	"context"
	"regexp"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
)

const (
	TaskType = "classify-intent"
)

var (
	nearPattern     = regexp.MustCompile(`\bnear me\b|\bnearby\b`)
	categoryPattern = regexp.MustCompile(`\b(doctors?|clinics?|hospital|dentist|pharmacy|restaurant|cafe|bank|atm|lawyer)\b.*\b(me|near)\b`)
	whoPattern      = regexp.MustCompile(`\bwho(\s+is|'s|’s)\b`)
	namePattern     = regexp.MustCompile(`^[\p{L} .'’-]+$`)
	companyPattern  = regexp.MustCompile(`\b(ltd|limited|inc|llc|plc|corp|startup|company|private|pvt)\b`)

	leadPattern     = regexp.MustCompile(`(?i)^(who\s+is|who's|who’s|tell\s+me\s+about|what\s+is|what's)\s+`)
	trailingPattern = regexp.MustCompile(`[\s?!.,;:]+$`)
)

// Classify maps a query to its intent. Rules are checked in order: local,
// people, company, general.
func Classify(text string) models.Intent {
	s := strings.ToLower(strings.TrimSpace(text))

	if nearPattern.MatchString(s) || categoryPattern.MatchString(s) {
		return models.IntentLocal
	}
	if whoPattern.MatchString(s) {
		return models.IntentPeople
	}
	if s != "" && len(strings.Fields(s)) <= 4 && namePattern.MatchString(s) {
		return models.IntentPeople
	}
	if companyPattern.MatchString(s) {
		return models.IntentCompany
	}
	return models.IntentGeneral
}

// SubjectOf strips question lead-ins, trailing punctuation and quotes.
func SubjectOf(query string) string {
	s := strings.TrimSpace(query)
	s = leadPattern.ReplaceAllString(s, "")
	s = trailingPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, "\"'“”‘’ ")
	if s == "" {
		return strings.TrimSpace(query)
	}
	return s
}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	q := strings.TrimSpace(input.Query)
	if q == "" {
		return nil, errors.NewEmptyQueryError()
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = SubjectOf(q)
	}
	out := &Output{Intent: Classify(q), Subject: subject}

	h.logger.Debug("query classified", map[string]interface{}{
		"intent":  out.Intent,
		"subject": out.Subject,
	})
	return out, nil
}
