package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/errx"
	"github.com/martinhantha/kutt/internal/filter"
	"github.com/martinhantha/kutt/internal/service/mocks"
)

const testDomain = "kutt.test"

var createdAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRouter(resolver *mocks.Resolver) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(resolver, testDomain, logger), logger, true)
}

func serve(t *testing.T, resolver *mocks.Resolver, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Host == "" || req.Host == "example.com" {
		req.Host = testDomain
	}
	rec := httptest.NewRecorder()
	newTestRouter(resolver).ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	if s, ok := v.(string); ok {
		return strings.NewReader(s)
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func sampleLink() *domain.Link {
	return &domain.Link{
		ID:        1,
		Address:   "abc",
		Target:    "https://example.com",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func unavailable(op string) error {
	return fmt.Errorf("failed to find link: %w", errx.E(op, errx.Unavailable, context.DeadlineExceeded))
}

func TestHandler_Redirect(t *testing.T) {
	tests := []struct {
		name             string
		host             string
		setupMocks       func(*mocks.Resolver)
		expectedStatus   int
		expectedLocation string
	}{
		{
			name: "redirects to target",
			setupMocks: func(m *mocks.Resolver) {
				m.On("Find", mock.Anything, filter.ByAddress("abc", domain.DefaultDomain())).Return(sampleLink(), nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "https://example.com",
		},
		{
			name: "default domain with port",
			host: testDomain + ":3000",
			setupMocks: func(m *mocks.Resolver) {
				m.On("Find", mock.Anything, filter.ByAddress("abc", domain.DefaultDomain())).Return(sampleLink(), nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "https://example.com",
		},
		{
			name: "unknown address",
			setupMocks: func(m *mocks.Resolver) {
				m.On("Find", mock.Anything, filter.ByAddress("abc", domain.DefaultDomain())).Return(nil, nil)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "custom domain host is not resolved here",
			host:           "short.example.org",
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "password protected",
			setupMocks: func(m *mocks.Resolver) {
				link := sampleLink()
				link.Password = "$2a$04$hash"
				m.On("Find", mock.Anything, filter.ByAddress("abc", domain.DefaultDomain())).Return(link, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "store unavailable",
			setupMocks: func(m *mocks.Resolver) {
				m.On("Find", mock.Anything, filter.ByAddress("abc", domain.DefaultDomain())).
					Return(nil, unavailable("repository.FindOne"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mocks.Resolver{}
			tt.setupMocks(resolver)

			req := httptest.NewRequest(http.MethodGet, "/abc", nil)
			req.Host = tt.host
			rec := serve(t, resolver, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, rec.Header().Get("Location"))
			}
			resolver.AssertExpectations(t)
		})
	}
}

func TestHandler_ListLinks(t *testing.T) {
	rows := []*domain.TargetRow{
		{Target: domain.Target{ID: 2, UUID: "u-2", Target: "https://b.example"}, Address: strPtr("b")},
		{Target: domain.Target{ID: 1, UUID: "u-1", Target: "https://a.example"}, Address: strPtr("a")},
	}

	tests := []struct {
		name           string
		query          string
		setupMocks     func(*mocks.Resolver)
		expectedStatus int
		expectedLimit  uint64
		expectedTotal  int64
	}{
		{
			name: "defaults",
			setupMocks: func(m *mocks.Resolver) {
				m.On("List", mock.Anything, filter.Filter{}, domain.ListParams{Limit: DefaultListLimit}).Return(rows, nil)
				m.On("Count", mock.Anything, filter.Filter{}, domain.SearchParams{}).Return(int64(2), nil)
			},
			expectedStatus: http.StatusOK,
			expectedLimit:  DefaultListLimit,
			expectedTotal:  2,
		},
		{
			name:  "paginated search with capped limit",
			query: "?skip=5&limit=500&search=%20bee%20",
			setupMocks: func(m *mocks.Resolver) {
				m.On("List", mock.Anything, filter.Filter{}, domain.ListParams{Skip: 5, Limit: MaxListLimit, Search: "bee"}).
					Return([]*domain.TargetRow(nil), nil)
				m.On("Count", mock.Anything, filter.Filter{}, domain.SearchParams{Search: "bee"}).Return(int64(0), nil)
			},
			expectedStatus: http.StatusOK,
			expectedLimit:  MaxListLimit,
		},
		{
			name:           "negative skip",
			query:          "?skip=-1",
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero limit",
			query:          "?limit=0",
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "store failure",
			query: "",
			setupMocks: func(m *mocks.Resolver) {
				m.On("List", mock.Anything, filter.Filter{}, domain.ListParams{Limit: DefaultListLimit}).
					Return(nil, unavailable("repository.List"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mocks.Resolver{}
			tt.setupMocks(resolver)

			rec := serve(t, resolver, httptest.NewRequest(http.MethodGet, "/api/links"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var body domain.ListLinksResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.expectedLimit, body.Limit)
				assert.Equal(t, tt.expectedTotal, body.Total)
				assert.NotNil(t, body.Data, "an empty page is encoded as []")
			}
			resolver.AssertExpectations(t)
		})
	}
}

func TestHandler_CreateLink(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		setupMocks     func(*mocks.Resolver)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful creation",
			requestBody: domain.CreateLinkRequest{
				Address:  " abc ",
				Target:   "https://example.com",
				Password: strPtr("secret"),
			},
			setupMocks: func(m *mocks.Resolver) {
				link := sampleLink()
				link.Password = "$2a$04$hash"
				m.On("Create", mock.Anything, domain.CreateLinkParams{
					Address:  "abc",
					Target:   "https://example.com",
					Password: strPtr("secret"),
				}).Return(link, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid JSON",
			requestBody:    "{not json",
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid JSON",
		},
		{
			name:           "missing target",
			requestBody:    domain.CreateLinkRequest{Address: "abc"},
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "target is required",
		},
		{
			name:           "target too long",
			requestBody:    domain.CreateLinkRequest{Target: "https://example.com/" + strings.Repeat("a", domain.MaxTargetLength)},
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "target is too long",
		},
		{
			name:        "address taken",
			requestBody: domain.CreateLinkRequest{Address: "abc", Target: "https://example.com"},
			setupMocks: func(m *mocks.Resolver) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil,
					fmt.Errorf("failed to create link: %w", errx.E("repository.CreateLink", errx.Conflict, errors.New("UNIQUE constraint failed"))))
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "custom address is already in use",
		},
		{
			name:        "rejected target",
			requestBody: domain.CreateLinkRequest{Target: "ftp://example.com"},
			setupMocks: func(m *mocks.Resolver) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil,
					errx.E("service.Create", errx.Invalid, errors.New("invalid URL: only HTTP and HTTPS are supported")))
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid URL: only HTTP and HTTPS are supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mocks.Resolver{}
			tt.setupMocks(resolver)

			req := httptest.NewRequest(http.MethodPost, "/api/links", jsonBody(t, tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(t, resolver, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rec))
			} else {
				var link domain.Link
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&link))
				assert.Equal(t, "abc", link.Address)
				assert.Empty(t, link.Password, "password hash must not be exposed")
			}
			resolver.AssertExpectations(t)
		})
	}
}

func TestHandler_UpdateLink(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		requestBody    any
		setupMocks     func(*mocks.Resolver)
		expectedStatus int
	}{
		{
			name:        "successful update",
			path:        "/api/links/1",
			requestBody: map[string]any{"address": "xyz"},
			setupMocks: func(m *mocks.Resolver) {
				link := sampleLink()
				link.Address = "xyz"
				m.On("Update", mock.Anything, filter.ByID(1), domain.LinkPatch{Address: strPtr("xyz")}).
					Return([]*domain.Link{link}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "move to custom domain",
			path:        "/api/links/1",
			requestBody: map[string]any{"domain_id": 5},
			setupMocks: func(m *mocks.Resolver) {
				m.On("Update", mock.Anything, filter.ByID(1), domain.LinkPatch{DomainID: domain.InDomain(5)}).
					Return([]*domain.Link{sampleLink()}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "move back to default domain",
			path:        "/api/links/1",
			requestBody: map[string]any{"domain_id": nil},
			setupMocks: func(m *mocks.Resolver) {
				m.On("Update", mock.Anything, filter.ByID(1), domain.LinkPatch{DomainID: domain.DefaultDomain()}).
					Return([]*domain.Link{sampleLink()}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "non-numeric domain id",
			path:           "/api/links/1",
			requestBody:    map[string]any{"domain_id": "custom.example"},
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty patch",
			path:           "/api/links/1",
			requestBody:    map[string]any{},
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero id",
			path:           "/api/links/0",
			requestBody:    map[string]any{"address": "xyz"},
			setupMocks:     func(m *mocks.Resolver) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "no such link",
			path:        "/api/links/9",
			requestBody: map[string]any{"description": "gone"},
			setupMocks: func(m *mocks.Resolver) {
				m.On("Update", mock.Anything, filter.ByID(9), domain.LinkPatch{Description: strPtr("gone")}).
					Return([]*domain.Link{}, nil)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "address conflict",
			path:        "/api/links/1",
			requestBody: map[string]any{"address": "taken"},
			setupMocks: func(m *mocks.Resolver) {
				m.On("Update", mock.Anything, filter.ByID(1), mock.Anything).
					Return(nil, errx.E("repository.Update", errx.Conflict, errors.New("duplicate")))
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mocks.Resolver{}
			tt.setupMocks(resolver)

			rec := serve(t, resolver, httptest.NewRequest(http.MethodPatch, tt.path, jsonBody(t, tt.requestBody)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			resolver.AssertExpectations(t)
		})
	}
}

func TestHandler_DeleteLink(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		resolver := &mocks.Resolver{}
		resolver.On("Remove", mock.Anything, filter.ByID(1)).
			Return(&domain.RemoveResult{Removed: true, Affected: 1, Link: sampleLink()}, nil)

		rec := serve(t, resolver, httptest.NewRequest(http.MethodDelete, "/api/links/1", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		resolver.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		resolver := &mocks.Resolver{}
		resolver.On("Remove", mock.Anything, filter.ByID(7)).Return(&domain.RemoveResult{
			Error: errx.E("repository.Remove", errx.NotFound, errors.New("could not find the link")),
		}, nil)

		rec := serve(t, resolver, httptest.NewRequest(http.MethodDelete, "/api/links/7", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "link not found", decodeError(t, rec))
	})

	t.Run("not removed without an error", func(t *testing.T) {
		resolver := &mocks.Resolver{}
		resolver.On("Remove", mock.Anything, filter.ByID(8)).Return(&domain.RemoveResult{Link: sampleLink()}, nil)

		rec := serve(t, resolver, httptest.NewRequest(http.MethodDelete, "/api/links/8", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "link not found", decodeError(t, rec))
	})

	t.Run("non-numeric id is not routed", func(t *testing.T) {
		resolver := &mocks.Resolver{}

		rec := serve(t, resolver, httptest.NewRequest(http.MethodDelete, "/api/links/abc", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resolver.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})
}

func TestHandler_BatchDeleteLinks(t *testing.T) {
	t.Run("removes listed links", func(t *testing.T) {
		resolver := &mocks.Resolver{}
		resolver.On("BatchRemove", mock.Anything, filter.ByIDs(1, 2, 3)).
			Return(&domain.BatchRemoveResult{Removed: true, Affected: 2}, nil)

		rec := serve(t, resolver, httptest.NewRequest(http.MethodPost, "/api/links/batch-delete",
			jsonBody(t, domain.BatchDeleteRequest{IDs: []int64{1, 2, 3}})))

		require.Equal(t, http.StatusOK, rec.Code)
		var body batchDeleteResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, int64(2), body.Removed)
		resolver.AssertExpectations(t)
	})

	t.Run("requires ids", func(t *testing.T) {
		resolver := &mocks.Resolver{}

		rec := serve(t, resolver, httptest.NewRequest(http.MethodPost, "/api/links/batch-delete",
			jsonBody(t, domain.BatchDeleteRequest{})))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ids are required", decodeError(t, rec))
	})
}

func TestHandler_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		resolver := &mocks.Resolver{}
		resolver.On("Ping", mock.Anything).Return(nil)

		rec := serve(t, resolver, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("store down", func(t *testing.T) {
		resolver := &mocks.Resolver{}
		resolver.On("Ping", mock.Anything).Return(errors.New("connection refused"))

		rec := serve(t, resolver, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	resolver := &mocks.Resolver{}

	rec := serve(t, resolver, httptest.NewRequest(http.MethodPut, "/api/links", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	resolver := &mocks.Resolver{}
	resolver.On("Ping", mock.Anything).Return(nil)

	serve(t, resolver, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := serve(t, resolver, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "link_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := map[errx.Kind]int{
		errx.NotFound:    http.StatusNotFound,
		errx.Invalid:     http.StatusBadRequest,
		errx.Conflict:    http.StatusConflict,
		errx.Unavailable: http.StatusServiceUnavailable,
		errx.Internal:    http.StatusInternalServerError,
	}

	for kind, status := range tests {
		t.Run(kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", errx.E("op", kind, errors.New("cause")))
			assert.Equal(t, status, statusFor(err))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("plain")))
}

func TestServer_New(t *testing.T) {
	server := NewServer(&mocks.Resolver{}, "3000", testDomain, false, nil)

	assert.Equal(t, "3000", server.Port())
	assert.NotNil(t, server.Handler())
}

func strPtr(s string) *string { return &s }
