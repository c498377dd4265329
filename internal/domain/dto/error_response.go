package dto

import "time"

// ErrorResponse is the JSON body of every failed API request.
//
// Example:
//
//	{
//	  "status": 404,
//	  "message": "Symbol not found",
//	  "error_type": "not_found",
//	  "details": "yahoo quote: not_found",
//	  "timestamp": "2024-03-28T10:00:00Z"
//	}
type ErrorResponse struct {
	Status       int       `json:"status,omitempty" example:"404"`
	Message      string    `json:"message" example:"Symbol not found"`
	ErrorType    string    `json:"error_type,omitempty" example:"not_found"`
	ErrorDetails string    `json:"details,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Error makes ErrorResponse usable as an error value.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse stamped with the current time.
// The inner error, when present, becomes the details field.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Message: message, Timestamp: time.Now().UTC()}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
