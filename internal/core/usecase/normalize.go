package usecase

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"

	"github.com/kirillkom/witness-statement/internal/core/domain"
	"github.com/kirillkom/witness-statement/internal/core/ports"
)

// NormalizedSubmission holds the fields that need reshaping before binding.
type NormalizedSubmission struct {
	Narrative        []domain.NarrativeItem
	PoliceSignature  domain.SignatureImage
	WitnessSignature domain.SignatureImage
	// DroppedSignatures names signature fields whose payload was not a PNG.
	DroppedSignatures []string
}

// FieldNormalizer is a pure transform; malformed input degrades to empty values.
type FieldNormalizer struct {
	splitter ports.LineSplitter
}

func NewFieldNormalizer(splitter ports.LineSplitter) *FieldNormalizer {
	return &FieldNormalizer{splitter: splitter}
}

func (n *FieldNormalizer) Normalize(record domain.SubmissionRecord, size domain.ImageSize) NormalizedSubmission {
	out := NormalizedSubmission{Narrative: n.NarrativeItems(record.Paragraph)}

	var dropped bool
	out.PoliceSignature, dropped = signatureImage(record.PoliceSignature, size)
	if dropped {
		out.DroppedSignatures = append(out.DroppedSignatures, domain.FieldPoliceSignature)
	}
	out.WitnessSignature, dropped = signatureImage(record.WitnessSignature, size)
	if dropped {
		out.DroppedSignatures = append(out.DroppedSignatures, domain.FieldWitnessSignature)
	}
	return out
}

// NarrativeItems returns one item per non-blank line, in original order.
func (n *FieldNormalizer) NarrativeItems(text string) []domain.NarrativeItem {
	lines := n.splitter.Split(text)
	items := make([]domain.NarrativeItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.NarrativeItem{Value: line})
	}
	return items
}

// signatureImage decodes a signature and blanks it when the bytes are not a
// PNG; dropped reports that a non-empty payload was discarded.
func signatureImage(dataURL string, size domain.ImageSize) (img domain.SignatureImage, dropped bool) {
	data := DecodeDataURL(dataURL)
	if len(data) > 0 {
		if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
			data, dropped = []byte{}, true
		}
	}
	return domain.SignatureImage{
		Data:   data,
		Width:  size.Width,
		Height: size.Height,
	}, dropped
}

// DecodeDataURL drops everything up to and including the first comma and
// base64-decodes the rest. Input without a comma, or with an undecodable
// payload, yields an empty slice.
func DecodeDataURL(dataURL string) []byte {
	_, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return []byte{}
	}
	// only the segment before a second comma is payload
	payload, _, _ = strings.Cut(payload, ",")
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return []byte{}
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(payload); err == nil {
			return decoded
		}
	}
	return []byte{}
}
