package usecase

import (
	"encoding/base64"
	"testing"

	"github.com/kirillkom/witness-statement/internal/testsupport/docxtest"
)

func encodePNG(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(docxtest.PNG(t, 4, 2))
}
