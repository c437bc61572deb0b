package gemini

type Message struct {
	Role string
	Text string
}

type ImageInput struct {
	Data     []byte
	MimeType string
}

// Request is one generateContent call. Schema, when set, constrains the
// response to JSON of that shape.
type Request struct {
	System  string
	History []Message
	Prompt  string
	Images  []ImageInput
	Schema  *Schema
}

type Response struct {
	Text         string
	FinishReason string
}

// Schema is the OpenAPI subset accepted by responseSchema.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
}

func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "OBJECT", Properties: props, Required: required}
}

func Array(items *Schema) *Schema {
	return &Schema{Type: "ARRAY", Items: items}
}

func String() *Schema {
	return &Schema{Type: "STRING"}
}

func Enum(values ...string) *Schema {
	return &Schema{Type: "STRING", Enum: values}
}

func Boolean() *Schema {
	return &Schema{Type: "BOOLEAN"}
}
