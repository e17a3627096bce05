package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.beyond.io/tdi-ingest/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes the content of a report file.
//
// Parameters:
//   - file: The remote path of the file, used in error messages.
//   - content: The raw bytes of the file.
//
// Returns:
//   - The parsed report.
//   - A core.Error of kind KindParse when the content is not a single JSON object, or when the
//     Metrics root, "@DeviceId" or "@SiteId" is missing or empty.
func Parse(file string, content []byte) (*Report, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, core.NewError(core.KindParse, "decode", file, errors.New("empty payload"))
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, core.NewError(core.KindParse, "decode", file, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, core.NewError(core.KindParse, "decode", file, errors.New("trailing data after JSON document"))
	}

	r, err := fromDocument(file, doc)
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, core.NewError(core.KindParse, "validate", file, err)
	}

	return r, nil
}

// fromDocument builds the typed view from the exact "Metrics" key of the decoded document,
// so identity, digest and the persisted body all come from the same object.
func fromDocument(file string, doc map[string]any) (*Report, error) {
	root, ok := doc["Metrics"]
	if !ok || root == nil {
		return nil, core.NewError(core.KindParse, "validate", file, errors.New("missing Metrics object"))
	}
	metrics, ok := root.(map[string]any)
	if !ok {
		return nil, core.NewError(core.KindParse, "validate", file, errors.New("Metrics is not an object"))
	}

	raw, err := json.Marshal(metrics)
	if err != nil {
		return nil, core.NewError(core.KindParse, "decode", file, err)
	}
	var typed Metrics
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, core.NewError(core.KindParse, "decode", file, err)
	}

	return &Report{
		File:     file,
		Metrics:  &typed,
		deviceID: attribute(metrics, "@DeviceId"),
		siteID:   attribute(metrics, "@SiteId"),
		doc:      doc,
	}, nil
}

// attribute returns an exact-key string or number attribute of obj, or "".
func attribute(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func validate(r *Report) error {
	if r.DeviceID() == "" {
		return fmt.Errorf("missing or empty %q", "@DeviceId")
	}
	if r.SiteID() == "" {
		return fmt.Errorf("missing or empty %q", "@SiteId")
	}
	return nil
}
