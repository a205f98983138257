// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"io"
	"log/slog"
	"net/http"
)

// fallbackBody is the response body written when a typed response
// fails to encode. It is a fixed literal so the fallback path itself
// can never fail.
const fallbackBody = `{"errcode":"M_UNKNOWN","error":"internal server error"}`

// WriteResponse serializes a typed response to the wire. On success
// the status, headers, and body produced by the response's own
// encoder are copied verbatim. On encoder failure the original error
// is logged and fully absorbed: the client receives a fixed 500 with
// a generic Matrix error body. Either way the handler has answered
// with a well-formed HTTP response.
func WriteResponse(writer http.ResponseWriter, logger *slog.Logger, response OutgoingResponse) {
	status, header, body, err := response.EncodeResponse()
	if err != nil {
		logger.Error("could not encode response", "error", err)
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusInternalServerError)
		io.WriteString(writer, fallbackBody)
		return
	}

	for key, values := range header {
		for _, value := range values {
			writer.Header().Add(key, value)
		}
	}
	writer.WriteHeader(status)
	writer.Write(body)
}
