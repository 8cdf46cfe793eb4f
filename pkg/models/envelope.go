package models

import "encoding/json"

// Envelope is the uniform response wrapper used by the backend. EC == 0
// signals success; any other value is a domain-level failure described by EM.
type Envelope struct {
	EC   int             `json:"EC"`
	EM   string          `json:"EM"`
	Data json.RawMessage `json:"data"`
}

func (e Envelope) OK() bool {
	return e.EC == 0
}

type Page struct {
	Items       json.RawMessage `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

type Avatar struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type ContactEmail struct {
	Title     string `json:"title"`
	IsDefault bool   `json:"is_default"`
	Email     string `json:"email"`
}

type ContactPhone struct {
	Title     string `json:"title"`
	Number    string `json:"number"`
	IsDefault bool   `json:"is_default"`
}
