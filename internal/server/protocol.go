package server

// Message types. Requests and replies other than region data are JSON
// text frames; a region is sent as one binary frame holding the encoded
// region file.
const (
	TypeRegion = "region"
	TypeInfo   = "info"
	TypeError  = "error"
)

// Request is a client message.
type Request struct {
	Type string `json:"type"`
	// ID correlates replies with requests. The server assigns one when it
	// is empty.
	ID string `json:"id,omitempty"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
}

// InfoMsg describes the world the server generates.
type InfoMsg struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Seed        int64    `json:"seed"`
	Dim         int      `json:"dim"`
	Compression string   `json:"compression"`
	Biomes      []string `json:"biomes"`
}

// ErrorMsg reports a failed request.
type ErrorMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Error string `json:"error"`
}
