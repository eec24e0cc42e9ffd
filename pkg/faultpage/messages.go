package faultpage

import "net/http"

// PublicMessage returns the message safe to show to end users for status.
// Details of server-side failures are never exposed.
func PublicMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusForbidden:
		return "You do not have permission to access this resource."
	case http.StatusUnauthorized:
		return "Authentication is required to access this resource."
	case http.StatusUnprocessableEntity:
		return "The submitted data was invalid."
	case http.StatusTooManyRequests:
		return "Too many requests. Please slow down and try again later."
	case http.StatusNotAcceptable:
		return "The requested representation is not available."
	}
	return "An unexpected error occurred. Please try again later."
}

// Title returns the page heading for status.
func Title(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Error"
}
