package api

import (
	"encoding/json"
	"strings"
)

// Pagination is the metadata block of a successful list envelope. NextPage
// and NextCursor are pointers/empty-able so their absence is observable: a
// page with neither is the last page.
type Pagination struct {
	Total      int    `json:"total"`
	Page       *int   `json:"page,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
	Limit      int    `json:"limit"`
	NextPage   *int   `json:"next_page,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// HasNext reports whether the store advertised a further page.
func (p *Pagination) HasNext() bool {
	if p == nil {
		return false
	}
	return p.NextPage != nil || p.NextCursor != ""
}

// envelope is the wire shape of every storefront response. A failure carries
// only Error; a success carries Data and, for lists, Pagination.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Error      *errorBody      `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeEnvelope turns a raw response body into an envelope.
//
// Decoding order matters: the failure envelope is checked before the body is
// trusted as a success payload, and an empty (or whitespace-only) body is a
// valid "no data" response, not a parse failure.
func decodeEnvelope(body []byte, statusCode int) (*envelope, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return &envelope{}, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Err: err}
	}

	if env.Error != nil {
		return nil, &ServerError{
			StatusCode: statusCode,
			Code:       env.Error.Code,
			Message:    env.Error.Message,
		}
	}

	return &env, nil
}
