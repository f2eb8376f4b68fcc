package main

import (
	"net/http"
)

// authHeader builds the handshake headers for the producer. With no
// token configured the handshake carries no credentials.
func authHeader(token string) http.Header {
	if token == "" {
		return nil // No auth configured
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return header
}
