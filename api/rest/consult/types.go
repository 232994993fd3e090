package consult

type HistoryEntry struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

type ConsultRequest struct {
	Message   string         `json:"message" binding:"required"`
	History   []HistoryEntry `json:"history,omitempty"`
	ImageURLs []string       `json:"imageUrls,omitempty"`
}

type ConsultResponse struct {
	Reply                 string `json:"reply"`
	Model                 string `json:"model"`
	RemainingInteractions *int   `json:"remainingInteractions"`
	HasUnlimited          bool   `json:"hasUnlimited"`
}
