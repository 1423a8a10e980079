package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"middleoffice/internal/document/handler/mocks"
	"middleoffice/internal/document/models"
	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/testutil"
)

const validID = "655c7c5b037c912bb7ce3973"

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, nil).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestPing() {
	s.Run("backend reachable", func() {
		s.service.EXPECT().Ping(gomock.Any()).Return(nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/ping", ""))
		s.Equal(http.StatusOK, rr.Code)
		s.Equal(msgPingOK, rr.Body.String())
	})

	s.Run("backend down", func() {
		s.service.EXPECT().Ping(gomock.Any()).Return(errors.New("no reachable servers"))
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/ping", ""))
		s.Equal(http.StatusServiceUnavailable, rr.Code)
		s.Equal("Error ping db return error: no reachable servers", rr.Body.String())
	})
}

func (s *HandlerSuite) TestCreate() {
	s.Run("returns the inserted id", func() {
		s.service.EXPECT().
			Create(gomock.Any(), map[string]any{"policy": map[string]any{"name": "ACME"}, "amount": int64(12)}).
			Return(&models.Document{ID: validID, Content: models.InsertedID(validID)}, nil)

		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/any", `{"policy":{"name":"ACME"},"amount":12}`)
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"$oid":"`+validID+`"}`, rr.Body.String())
	})

	s.Run("invalid json is rejected before the service", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/any", `{"policy":`)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Parsing exception : Invalid JSON body.")
	})

	s.Run("empty body is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/any", "  "))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Parsing exception : Invalid JSON body.")
	})

	s.Run("oversized body is rejected", func() {
		big := `{"blob":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/any", big))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("context error keeps its status", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeContext, "Invalid requestDate"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/any", `{"context":{}}`))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Context exception : Invalid requestDate")
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns the content directly", func() {
		s.service.EXPECT().Get(gomock.Any(), validID).
			Return(&models.Document{ID: validID, Content: models.Content{"source": "Dummy"}}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/any/"+validID, ""))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"source":"Dummy"}`, rr.Body.String())
	})

	s.Run("malformed id", func() {
		s.service.EXPECT().Get(gomock.Any(), "1234").
			Return(nil, dErrors.New(dErrors.CodeOidFormat, "ObjectId wrongly structure."))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/any/1234", ""))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "ObjectId exception : ObjectId wrongly structure.")
	})

	s.Run("not found", func() {
		s.service.EXPECT().Get(gomock.Any(), validID).
			Return(nil, dErrors.New(dErrors.CodeDataNotFound, "No result."))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/any/"+validID, ""))
		testutil.AssertException(s.T(), rr, http.StatusNotFound, "Data not found : No result.")
	})
}

func (s *HandlerSuite) TestUpdate() {
	s.Run("forwards the decoded body", func() {
		s.service.EXPECT().Update(gomock.Any(), validID, map[string]any{"source": "Dummy"}).
			Return(&models.Document{ID: "655c7c41037c412bb7ce6971", Content: models.InsertedID("655c7c41037c412bb7ce6971")}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPut, "/api/any/"+validID, `{"source":"Dummy"}`))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"$oid":"655c7c41037c412bb7ce6971"}`, rr.Body.String())
	})

	s.Run("empty body touches the record", func() {
		s.service.EXPECT().Update(gomock.Any(), validID, nil).
			Return(&models.Document{ID: "655c7c41037c412bb7ce6972", Content: models.InsertedID("655c7c41037c412bb7ce6972")}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPut, "/api/any/"+validID, ""))
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("wrapped not found keeps 404", func() {
		inner := dErrors.New(dErrors.CodeDataNotFound, "No result.")
		s.service.EXPECT().Update(gomock.Any(), validID, gomock.Any()).
			Return(nil, dErrors.Wrap(inner, dErrors.CodeConnection, "Get policy failed: "+inner.Error()+"."))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPut, "/api/any/"+validID, `{"source":"Dummy"}`))
		testutil.AssertException(s.T(), rr, http.StatusNotFound, "Connection exception : Get policy failed: Data not found : No result..")
	})

	s.Run("invalid json", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPut, "/api/any/"+validID, `[1,`))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Parsing exception : Invalid JSON body.")
	})
}

func (s *HandlerSuite) TestDelete() {
	s.Run("deleted", func() {
		s.service.EXPECT().Delete(gomock.Any(), validID).Return(&models.DeletionResult{DeletedCount: 1}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodDelete, "/api/any/"+validID, ""))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"result":"Policy successfully deleted!"}`, rr.Body.String())
	})

	s.Run("nothing removed", func() {
		s.service.EXPECT().Delete(gomock.Any(), validID).Return(&models.DeletionResult{DeletedCount: 0}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodDelete, "/api/any/"+validID, ""))
		testutil.AssertException(s.T(), rr, http.StatusNotFound, "No result..")
	})

	s.Run("not found", func() {
		s.service.EXPECT().Delete(gomock.Any(), validID).
			Return(nil, dErrors.New(dErrors.CodeDataNotFound, "No result."))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodDelete, "/api/any/"+validID, ""))
		testutil.AssertException(s.T(), rr, http.StatusNotFound, "Data not found : No result.")
	})
}

func (s *HandlerSuite) TestList() {
	s.Run("parses filters and paging", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, q models.Query) ([]models.Document, error) {
				s.Require().NotNil(q.Policyholder)
				s.Equal("ACME", *q.Policyholder)
				s.Nil(q.Date)
				s.Equal(int64(2), q.Page)
				s.Equal(int64(5), q.Limit)
				return []models.Document{{ID: validID, Content: models.Content{"_id": validID, "policy": map[string]any{"name": "ACME"}}}}, nil
			})

		req := testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/anys?policyholder=ACME&page=2&limit=5", "")
		rr := testutil.DoRequest(s.router, testutil.WithClaims(req, "policies:read"))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`[{"content":{"_id":"`+validID+`","policy":{"name":"ACME"}}}]`, rr.Body.String())
	})

	s.Run("empty result is an empty array", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any()).Return([]models.Document{}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/anys?date=2024-01-01T00:00:00Z", ""))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`[]`, rr.Body.String())
	})

	s.Run("filter errors are bad requests", func() {
		s.service.EXPECT().List(gomock.Any(), models.Query{}).
			Return(nil, dErrors.New(dErrors.CodeParsing, "No filter defined."))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/anys", ""))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Parsing exception : No filter defined.")
	})

	s.Run("backend errors are bad requests too", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConnection, "Exception while reading data from filter : timeout"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/anys?policyholder=ACME", ""))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Connection exception : Exception while reading data from filter : timeout")
	})

	s.Run("non numeric page", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/anys?policyholder=ACME&page=two", ""))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Parsing exception : Invalid page parameter.")
	})
}

func (s *HandlerSuite) TestCount() {
	s.Run("wraps the count", func() {
		date := "2024-01-01"
		s.service.EXPECT().Count(gomock.Any(), models.Query{Date: &date}).Return(int64(3), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/countanys?date=2024-01-01&page=9", ""))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"result":3}`, rr.Body.String())
	})

	s.Run("filter error", func() {
		s.service.EXPECT().Count(gomock.Any(), gomock.Any()).
			Return(int64(0), dErrors.New(dErrors.CodeFilterStringParsing, "Date filter wrongly formatted."))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/countanys?date=not+a+date", ""))
		testutil.AssertException(s.T(), rr, http.StatusBadRequest, "Filter exception : Date filter wrongly formatted.")
	})
}

func TestListRouteIsGuarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	router := chi.NewRouter()
	New(service, logger, deny).Register(router)

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/api/anys?policyholder=ACME", ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	service.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/api/countanys?policyholder=ACME", ""))
	require.Equal(t, http.StatusOK, rr.Code)
}
