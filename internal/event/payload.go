package event

import "encoding/json"

// RequestPayload accompanies request.* events.
type RequestPayload struct {
	RequestID uint   `json:"RequestID"`
	BookID    uint   `json:"BookID"`
	BookTitle string `json:"BookTitle"`
	StudentID uint   `json:"StudentID"`
	UserID    uint   `json:"UserID"` // the requesting student's user
}

// BookPayload accompanies book.* events.
type BookPayload struct {
	BookID          uint   `json:"BookID"`
	Title           string `json:"Title"`
	Available       bool   `json:"Available"`
	AvailableCopies int    `json:"AvailableCopies"`
}

// UserPayload accompanies user.* events.
type UserPayload struct {
	UserID   uint   `json:"UserID"`
	Username string `json:"Username"`
	Role     string `json:"Role"`
}

// Decode copies e.Data into v. Data is either the typed payload (in process)
// or a generic map (after a trip through Redis), so it goes through JSON.
func Decode(e Event, v interface{}) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
