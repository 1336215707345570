package dto

// MarkAttendanceRequest is submitted by a student at the venue.
type MarkAttendanceRequest struct {
	EventID   string   `json:"eventId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	QRCode    string   `json:"qrCode"`
}

// ExportAttendanceQuery selects the roster file format.
type ExportAttendanceQuery struct {
	Format string `form:"format"`
}
