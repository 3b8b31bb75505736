package dto

type SOSResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
}
