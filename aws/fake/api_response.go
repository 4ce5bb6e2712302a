package fake

import "errors"

type APIResponse struct {
	response interface{}
	err      error
}

type Tags map[string]string

var ErrDummy = errors.New("fail")

func R(r interface{}, e error) *APIResponse {
	return &APIResponse{response: r, err: e}
}

// Err returns the canned error, nil for a nil response.
func (r *APIResponse) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

// Response returns the canned response, nil for a nil response.
func (r *APIResponse) Response() interface{} {
	if r == nil {
		return nil
	}
	return r.response
}
