// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func ParseRetryAfter(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return info
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		info.RetryAfter = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(at); d > 0 {
			info.RetryAfter = d
		}
	}
	return info
}

// ParseRapidAPIHeaders extracts rate limit info from RapidAPI gateway
// headers. The reset header counts seconds until the quota window resets.
func ParseRapidAPIHeaders(headers http.Header) RateLimitInfo {
	info := ParseRetryAfter(headers)

	if reset := headers.Get("x-ratelimit-requests-reset"); reset != "" && info.RetryAfter == 0 {
		if seconds, err := strconv.ParseInt(reset, 10, 64); err == nil && seconds > 0 {
			info.ResetTime = time.Now().Add(time.Duration(seconds) * time.Second).Unix()
		}
	}

	if remaining := headers.Get("x-ratelimit-requests-remaining"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil {
			info.RequestsRemaining = n
		}
	}

	return info
}
