package domain

// Standard is a catalog record harvested from the public standards directory.
type Standard struct {
	ID                 string `json:"id"`
	Iso                string `json:"Iso"`
	Category           string `json:"Category,omitempty"`
	SubCategory        string `json:"SubCategory,omitempty"`
	Description        string `json:"description,omitempty"`
	PublicationDate    string `json:"publication_date,omitempty"`
	Status             string `json:"status,omitempty"`
	Stage              string `json:"stage,omitempty"`
	Edition            string `json:"edition,omitempty"`
	NumberOfPages      int    `json:"number_of_pages,omitempty"`
	TechnicalCommittee string `json:"technical_committee,omitempty"`
	ICS                []int  `json:"ics,omitempty"`
	URL                string `json:"url,omitempty"`
	IsActive           bool   `json:"is_active"`
}

// ChecklistItem materializes the standard for an audit checklist.
func (s Standard) ChecklistItem() ChecklistItem {
	return ChecklistItem{
		StandardID:   s.ID,
		Standard:     s.Iso,
		Requirements: s.Description,
	}
}
