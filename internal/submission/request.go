// Package submission is the protocol shared by the CLI and the web surface:
// it builds the engine request from configuration and user input, posts it to
// the engine, and interprets what comes back.
package submission

// EndpointPath is the only engine endpoint the clients talk to.
const EndpointPath = "/api/send"

// Input is what a single invocation or form submission provides.
type Input struct {
	URL     string
	Address string
	DryRun  bool
}

// Request is the JSON body posted to the engine.
type Request struct {
	URL         string  `json:"url"`
	KindleEmail string  `json:"kindleEmail"`
	DryRun      bool    `json:"dryRun"`
	SMTP        *SMTP   `json:"smtp,omitempty"`
	Limits      *Limits `json:"limits,omitempty"`
}

// SMTP is the transport descriptor as sent on the wire. Unlike config.SMTP it
// has a password, filled in from a SecretProvider at build time.
type SMTP struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	From        string `json:"from"`
	UseStartTLS bool   `json:"useStartTLS"`
	UseSSL      bool   `json:"useSSL"`
	Password    string `json:"password,omitempty"`
}

// Limits is copied from configuration unchanged.
type Limits struct {
	MaxBytes int64 `json:"maxBytes"`
}

// Response is the engine's JSON reply. Its fields are relayed, never
// recomputed.
type Response struct {
	OK          bool   `json:"ok"`
	ResolvedURL string `json:"resolvedUrl"`
	FileName    string `json:"fileName"`
	Bytes       int64  `json:"bytes"`
	Message     string `json:"message"`
}
