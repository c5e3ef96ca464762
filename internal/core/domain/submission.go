package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Placeholder names declared by the statement template.
const (
	FieldMatter           = "MATTER"
	FieldLocation         = "LOCATION"
	FieldDate             = "DATE"
	FieldName             = "NAME"
	FieldAge              = "AGE"
	FieldPoliceName       = "polName"
	FieldPoliceRego       = "polRego"
	FieldNarrative        = "PARAGRAPH"
	FieldPoliceSignature  = "policeSignature"
	FieldWitnessSignature = "witnessSignature"

	// NarrativeItemField is the name each repeated narrative item exposes inside the block.
	NarrativeItemField = "value"
)

// RequiredFields must be present in every submission. Values are not checked.
var RequiredFields = []string{FieldMatter, FieldLocation, FieldDate, FieldName, FieldAge, FieldNarrative}

// MissingFields lists the required fields for which present reports false.
func MissingFields(present func(field string) bool) []string {
	var missing []string
	for _, field := range RequiredFields {
		if !present(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// SubmissionRecord is one statement as received from a client. It is never stored.
type SubmissionRecord struct {
	Matter           string     `json:"MATTER"`
	Location         string     `json:"LOCATION"`
	Date             string     `json:"DATE"`
	Name             string     `json:"NAME"`
	Age              FlexString `json:"AGE"`
	PoliceName       string     `json:"polName,omitempty"`
	PoliceRego       string     `json:"polRego,omitempty"`
	Paragraph        string     `json:"PARAGRAPH"`
	PoliceSignature  string     `json:"policeSignature,omitempty"`
	WitnessSignature string     `json:"witnessSignature,omitempty"`
}

// SubmissionRow is one entry of a batch source. Number is 1-based in source order.
type SubmissionRow struct {
	Number int
	Record SubmissionRecord
	Err    error
}

// SubmissionFromFields builds a record from values keyed by their JSON field names.
func SubmissionFromFields(fields map[string]string) SubmissionRecord {
	return SubmissionRecord{
		Matter:           fields[FieldMatter],
		Location:         fields[FieldLocation],
		Date:             fields[FieldDate],
		Name:             fields[FieldName],
		Age:              FlexString(fields[FieldAge]),
		PoliceName:       fields[FieldPoliceName],
		PoliceRego:       fields[FieldPoliceRego],
		Paragraph:        fields[FieldNarrative],
		PoliceSignature:  fields[FieldPoliceSignature],
		WitnessSignature: fields[FieldWitnessSignature],
	}
}

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	if f, err := n.Float64(); err == nil {
		*s = FlexString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// NarrativeItem is one non-empty, trimmed line of the narrative text.
type NarrativeItem struct {
	Value string `json:"value"`
}

// Fields exposes the item to a repeating block.
func (n NarrativeItem) Fields() map[string]string {
	return map[string]string{NarrativeItemField: n.Value}
}

const (
	DefaultSignatureWidth  = 180
	DefaultSignatureHeight = 70
)

// SignatureImage is decoded PNG data with its display size in pixels.
// Empty Data renders as a blank placeholder.
type SignatureImage struct {
	Data   []byte
	Width  int
	Height int
}

func (s SignatureImage) Empty() bool { return len(s.Data) == 0 }
