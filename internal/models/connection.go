package models

import "time"

// Protocol identifies which adapter drives a repository connection.
type Protocol string

const (
	ProtocolREST Protocol = "REST"
	ProtocolCLI  Protocol = "CLI"
)

// RepositoryConnection describes one legacy repository endpoint. The active
// flag and last-contact timestamp are mutated only by connection tests and
// sync cycles, never by discovery.
type RepositoryConnection struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Host           string    `json:"host"`
	Port           int       `json:"port"`
	Protocol       Protocol  `json:"protocol"`
	CredentialsRef string    `json:"credentials_ref,omitempty"`
	Active         bool      `json:"active"`
	LastContact    time.Time `json:"last_contact,omitempty"`
	Created        time.Time `json:"created"`
}
