package llmadapter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
)

// Serializer turns structured data into message content.
type Serializer interface {
	Serialize(input any) (io.Reader, error)
}

// Serializers are the built-in serializers usable with WithSerializable.
var Serializers = struct {
	Json Serializer
	Csv  Serializer
}{
	Json: jsonSerializer{},
	Csv:  csvSerializer{},
}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(input any) (io.Reader, error) {
	buf, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(buf), nil
}

// csvSerializer only accepts [][]string.
type csvSerializer struct{}

func (csvSerializer) Serialize(input any) (io.Reader, error) {
	records, ok := input.([][]string)
	if !ok {
		return nil, errors.Newf("CSV serializer expects [][]string, got %T", input)
	}

	var buf bytes.Buffer

	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, err
	}

	return &buf, nil
}
