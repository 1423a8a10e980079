package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"middleoffice/internal/document/models"
	dErrors "middleoffice/pkg/domain-errors"
)

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}

// parseQuery reads date and policyholder, plus page and limit when paged.
// Absent parameters stay nil or zero; the filter applies the defaults.
func parseQuery(r *http.Request, paged bool) (models.Query, error) {
	values := r.URL.Query()
	var q models.Query
	if values.Has("date") {
		v := values.Get("date")
		q.Date = &v
	}
	if values.Has("policyholder") {
		v := values.Get("policyholder")
		q.Policyholder = &v
	}
	if !paged {
		return q, nil
	}

	var err error
	if q.Page, err = intParam(values.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(values.Get("limit"), "limit"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeParsing, "Invalid "+name+" parameter.")
	}
	return n, nil
}
