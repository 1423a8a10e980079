// Package filter turns listing query parameters into a store predicate plus
// skip, limit and projection.
package filter

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"middleoffice/internal/document/models"
	dErrors "middleoffice/pkg/domain-errors"
)

const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 10

	// dateKey is the lookup key of the date filter input.
	dateKey = "requestdate"

	// PolicyholderField is matched against the policyholder query parameter.
	PolicyholderField = "policy.name"
)

// ExcludedFields are hidden from listing responses.
var ExcludedFields = []string{
	"policy.location",
	"policy.title",
	"policy.toto",
	models.FieldRequestDate,
	models.FieldPolicyStartDate,
	models.FieldPolicyEndDate,
}

// Page is the skip/limit/projection descriptor of one listing call.
type Page struct {
	Skip       int64
	Limit      int64
	Projection bson.D
}

// FindOptions converts the page to driver find options.
func (p Page) FindOptions() *options.FindOptionsBuilder {
	return options.Find().
		SetSkip(p.Skip).
		SetLimit(p.Limit).
		SetProjection(p.Projection)
}

// DateFilter builds {requestDate: {$gte: t}} from input["requestdate"].
func DateFilter(input map[string]any) (bson.D, error) {
	raw, ok := input[dateKey].(string)
	if !ok {
		return nil, dErrors.New(dErrors.CodeFilterDateParsing, "Filter value not found requestDate")
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeFilterStringParsing, "Date filter wrongly formatted.")
	}
	return bson.D{{Key: models.FieldRequestDate, Value: bson.D{{Key: "$gte", Value: bson.NewDateTimeFromTime(t)}}}}, nil
}

// StringFilter converts a JSON object into a BSON predicate.
func StringFilter(value any) (bson.D, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, dErrors.New(dErrors.CodeFilterStructure, "Input Json String filter Data wrongly structure.")
	}
	raw, err := bson.Marshal(obj)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeContext, "Json String filter to bson wrongly structure.")
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.New(dErrors.CodeContext, "Json String filter to bson wrongly structure.")
	}
	return doc, nil
}

// Pagination skips (page-1)*limit matches. page < 1 is treated as the first
// page and limit < 1 as the default limit. A skip past math.MaxInt64 is capped
// there.
func Pagination(page, limit int64) Page {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	projection := make(bson.D, 0, len(ExcludedFields))
	for _, f := range ExcludedFields {
		projection = append(projection, bson.E{Key: f, Value: int32(0)})
	}
	skip := int64(math.MaxInt64)
	if page-1 <= math.MaxInt64/limit {
		skip = (page - 1) * limit
	}
	return Page{
		Skip:       skip,
		Limit:      limit,
		Projection: projection,
	}
}

// Build selects the predicate for q: date first, then policyholder.
func Build(q models.Query) (bson.D, error) {
	switch {
	case q.Date != nil:
		return DateFilter(map[string]any{dateKey: *q.Date})
	case q.Policyholder != nil:
		return StringFilter(map[string]any{PolicyholderField: *q.Policyholder})
	default:
		return nil, dErrors.New(dErrors.CodeParsing, "No filter defined.")
	}
}

var errIncompleteTimestamp = errors.New("timestamp lacks a calendar date")

// ParseTimestamp parses an RFC 3339 timestamp, falling back to unambiguous
// layouts with a full date. Values without a zone are read as UTC. Bare
// numbers and yearless dates are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if s == "" || strings.Trim(s, "0123456789") == "" {
		return time.Time{}, errIncompleteTimestamp
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	if t.Year() == 0 {
		return time.Time{}, errIncompleteTimestamp
	}
	return t.UTC(), nil
}
