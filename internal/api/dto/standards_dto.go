package dto

// StandardPayload is a crawler-shaped catalog record. Field names follow the
// harvested documents.
type StandardPayload struct {
	Iso                string `json:"Iso" validate:"required,max=100"`
	Category           string `json:"Category"`
	SubCategory        string `json:"SubCategory"`
	Description        string `json:"description"`
	PublicationDate    string `json:"publication_date"`
	Status             string `json:"status"`
	Stage              string `json:"stage"`
	Edition            string `json:"edition"`
	NumberOfPages      int    `json:"number_of_pages" validate:"gte=0"`
	TechnicalCommittee string `json:"technical_committee"`
	ICS                []int  `json:"ics"`
	URL                string `json:"url" validate:"omitempty,url"`
}

// ChatRequest is one message to the standards assistant.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" validate:"required,max=4000"`
	Iso       string `json:"iso" validate:"max=100"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Iso       string `json:"iso,omitempty"`
}
