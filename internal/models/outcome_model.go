package models

type PublishOutcome struct {
	Platform  PlatformID     `json:"platform"`
	Success   bool           `json:"success"`
	Result    map[string]any `json:"result,omitempty"`
	Message   string         `json:"message,omitempty"`
	Malformed bool           `json:"malformed,omitempty"`
}

type PublishResult struct {
	Outcomes            []PublishOutcome `json:"results"`
	SuccessfulPlatforms []PlatformID     `json:"successfulPlatforms"`
}
