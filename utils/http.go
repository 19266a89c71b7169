// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound service clients (wallet service).
var HTTPClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}
