package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

type Metadata struct {
	LastModified time.Time `json:"lastModified"`
	TotalItems   int       `json:"totalItems"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Envelope - версионированная обёртка коллекции под ключом хранилища
type Envelope struct {
	Version  string
	Items    json.RawMessage
	Metadata Metadata
}

// известные формы сырых данных под ключом
type rawShape int

const (
	shapeEnvelope rawShape = iota
	shapeLegacyArray
	shapeLegacyObject
	shapeUnknown
)

// sniffShape различает современный конверт и унаследованные формы:
// голый массив элементов либо объект без поля version
func sniffShape(raw []byte) rawShape {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return shapeLegacyArray
		case '{':
			var probe struct {
				Version *string `json:"version"`
			}
			if err := json.Unmarshal(raw, &probe); err != nil {
				return shapeUnknown
			}
			if probe.Version == nil {
				return shapeLegacyObject
			}
			return shapeEnvelope
		default:
			return shapeUnknown
		}
	}
	return shapeUnknown
}

// decodeEnvelope разбирает конверт, поле коллекции задаётся по имени
func decodeEnvelope(raw []byte, collection string) (Envelope, error) {
	var head struct {
		Version  string   `json:"version"`
		Metadata Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Envelope{}, fmt.Errorf("разбор конверта: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Envelope{}, fmt.Errorf("разбор полей конверта: %w", err)
	}

	items, ok := fields[collection]
	if !ok {
		return Envelope{}, fmt.Errorf("в конверте нет поля %q", collection)
	}

	return Envelope{
		Version:  head.Version,
		Items:    items,
		Metadata: head.Metadata,
	}, nil
}

// encodeEnvelope собирает конверт обратно; extra добавляет служебные поля
// (например exportedAt при экспорте)
func encodeEnvelope(env Envelope, collection string, extra map[string]any, pretty bool) ([]byte, error) {
	obj := map[string]any{
		"version":  env.Version,
		collection: env.Items,
		"metadata": env.Metadata,
	}
	for key, value := range extra {
		obj[key] = value
	}

	if pretty {
		return json.MarshalIndent(obj, "", "  ")
	}
	return json.Marshal(obj)
}
