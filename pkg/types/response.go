package types

type SuccessEnvelope struct {
	Data     any          `json:"data"`
	Warnings []APIWarning `json:"warnings,omitempty"`
}

type APIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
