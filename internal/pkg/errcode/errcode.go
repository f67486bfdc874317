package errcode

// Machine readable codes returned in the "code" field of error responses.
const (
	Unknown            = "unknown"
	Unauthorized       = "unauthorized"
	ReauthRequired     = "reauth_required"
	Forbidden          = "forbidden"
	NotFound           = "not_found"
	Invalid            = "invalid"
	InvalidFile        = "invalid_file"
	EmptyFile          = "empty_file"
	FileTooLarge       = "file_too_large"
	FormatUnrecognized = "format_unrecognized"
	JobFailed          = "job_failed"
	Conflict           = "conflict"
	TooMany            = "too_many_requests"
	Storage            = "storage_unavailable"
)
