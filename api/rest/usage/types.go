package usage

// response for GET /usage/interaction-limit. Limit and Remaining are null
// for unlimited plans
type InteractionLimitResponse struct {
	CurrentMonth int    `json:"currentMonth"`
	Month        string `json:"month"`
	Limit        *int   `json:"limit"`
	Remaining    *int   `json:"remaining"`
	HasUnlimited bool   `json:"hasUnlimited"`
}

type CheckInteractionRequest struct {
	InteractionType string `json:"interactionType"`
	Prompts         *int   `json:"prompts,omitempty"`
}

// 200 body of POST /usage/interaction-limit
type CheckInteractionResponse struct {
	CanInteract           bool `json:"canInteract"`
	RemainingInteractions *int `json:"remainingInteractions"`
	Limit                 *int `json:"limit"`
	CurrentMonth          int  `json:"currentMonth"`
	HasUnlimited          bool `json:"hasUnlimited"`
}

// 429 body of POST /usage/interaction-limit
type QuotaExceededResponse struct {
	CanInteract           bool   `json:"canInteract"`
	RemainingInteractions *int   `json:"remainingInteractions"`
	Limit                 *int   `json:"limit"`
	Message               string `json:"message"`
}

type RecordRequest struct {
	Prompts *int `json:"prompts,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// receives secondary metering failures
type FailureObserver interface {
	RecordFailed(source string)
}
