package ingress

import (
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// extractTextFromMessage extracts the text content from an email message
// For multipart messages, it tries to find text/plain parts
func extractTextFromMessage(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")

	// If it's not a multipart message, just return the body
	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	// Parse the Content-Type header to get the boundary
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If we can't parse the Content-Type, just return the body
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		// Not a multipart message, return the body
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	// Get the boundary
	boundary, ok := params["boundary"]
	if !ok {
		// No boundary found, return the body as is
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	// Walk the parts and keep the first text/plain one
	reader := multipart.NewReader(msg.Body, boundary)
	var fallback string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fallback, nil
		}

		partType := part.Header.Get("Content-Type")
		partBytes, err := io.ReadAll(part)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(partType), "text/plain") {
			return string(partBytes), nil
		}
		if fallback == "" && strings.Contains(strings.ToLower(partType), "text/") {
			fallback = string(partBytes)
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", nil
}
