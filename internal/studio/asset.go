package studio

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Asset is one upload and its rendering state. Source never changes after
// creation; Result only changes on a successful render.
type Asset struct {
	ID          string `json:"id"`
	Source      []byte `json:"-"`
	Result      []byte `json:"-"`
	MimeType    string `json:"mimeType,omitempty"`
	Status      Status `json:"status"`
	Err         string `json:"error,omitempty"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Remixing    bool   `json:"remixing"`
	Note        string `json:"note,omitempty"`
	Direction   string `json:"direction,omitempty"`

	template []byte
}

func (a *Asset) HasResult() bool {
	return len(a.Result) > 0
}

func (a *Asset) clone() Asset {
	c := *a
	c.Source = append([]byte(nil), a.Source...)
	if a.Result != nil {
		c.Result = append([]byte(nil), a.Result...)
	}
	c.template = nil
	return c
}

// Upload is raw image data handed to AddItems.
type Upload struct {
	Data     []byte
	MimeType string
	Note     string
}

// Mode is the conversation mode: Negotiating or Refining.
type Mode interface {
	isMode()
}

type Negotiating struct{}

type Refining struct {
	AssetID string
}

func (Negotiating) isMode() {}
func (Refining) isMode()    {}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

type Summary struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
}

type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Processing int `json:"processing"`
	Idle       int `json:"idle"`
	Failed     int `json:"failed"`
}

type remixTemplate struct {
	assetID string
	data    []byte
}

func newAssetID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:6])
}
