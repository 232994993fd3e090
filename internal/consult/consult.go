package consult

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/llm"
	"codeberg.org/healthconsultant/server/internal/logger"
	"codeberg.org/healthconsultant/server/internal/metrics"
)

const systemPrompt = `You are HealthConsultant, an assistant that helps people understand health questions.

Give clear, practical general information. You are not a doctor and cannot diagnose.
When symptoms sound urgent (chest pain, trouble breathing, signs of stroke, severe bleeding,
thoughts of self-harm) tell the person to contact emergency services right away.
Recommend seeing a licensed clinician for anything that needs an examination, tests or a prescription.
When images are attached, describe what is visible and avoid certainty about a diagnosis.`

// runs one metered AI consultation
type Service struct {
	gate      Gate
	recorder  Recorder
	generator llm.Generator
	failures  FailureObserver
}

func NewService(gate Gate, recorder Recorder, generator llm.Generator, failures FailureObserver) *Service {
	return &Service{gate: gate, recorder: recorder, generator: generator, failures: failures}
}

// checks entitlement, generates the reply, then meters it. entitlement errors
// stop the consultation; metering errors are logged and do not
func (s *Service) Consult(ctx context.Context, identity usage.Identity, req Request) (*Result, error) {
	messages, err := buildMessages(req)
	if err != nil {
		return nil, err
	}

	decision, err := s.gate.Require(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	resp, err := s.generator.Generate(ctx, llm.GenerationRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		ImageURLs:    req.ImageURLs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	result := &Result{
		Reply:     resp.Text,
		Model:     resp.Model,
		Unlimited: decision.Unlimited(),
		Remaining: decision.Remaining,
	}

	promptUnits := 1 + len(req.ImageURLs)

	if _, err := s.recorder.Record(ctx, identity, promptUnits); err != nil {
		logger.FromContext(ctx).Error("failed to record consultation usage",
			"error", err,
			"user_id", identity.UserID,
			"prompt_units", promptUnits,
		)

		if s.failures != nil {
			s.failures.RecordFailed(metrics.SourceConsultation)
		}

		return result, nil
	}

	result.Recorded = true

	if decision.Remaining != nil {
		remaining := max(*decision.Remaining-1, 0)
		result.Remaining = &remaining
	}

	return result, nil
}

func buildMessages(req Request) ([]llm.Message, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if len(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	if len(req.ImageURLs) > MaxImages {
		return nil, ErrTooManyImages
	}

	history := req.History
	if len(history) > MaxHistoryEntries {
		history = history[len(history)-MaxHistoryEntries:]
	}

	messages := make([]llm.Message, 0, len(history)+1)

	for _, turn := range history {
		if turn.Role != llm.RoleUser && turn.Role != llm.RoleAssistant {
			return nil, ErrInvalidRole
		}

		if strings.TrimSpace(turn.Content) == "" {
			continue
		}

		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	// the provider requires the conversation to open with a user turn
	for len(messages) > 0 && messages[0].Role != llm.RoleUser {
		messages = messages[1:]
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	return messages, nil
}
