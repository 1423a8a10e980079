package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"middleoffice/internal/document/models"
)

// toContent turns a decoded BSON document into plain JSON-like values:
// documents become maps, arrays become slices, dates become UTC times and
// object ids become hex strings.
func toContent(doc bson.D) models.Content {
	return models.Content(normalize(doc).(map[string]any))
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case bson.DateTime:
		return t.Time().UTC()
	case bson.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	default:
		return v
	}
}
