package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/claimdesk/pkg/controller/http"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/repository/memory"
	"github.com/secmon-lab/claimdesk/pkg/service/event"
	"github.com/secmon-lab/claimdesk/pkg/service/storage"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, model.ClaimID) error { return nil }

type fixture struct {
	srv   *server.Server
	repo  *memory.Memory
	blobs *storage.Memory
}

// newFixture serves as a fixed no-auth user with the given role
func newFixture(t *testing.T, sub string, role types.UserRole, opts ...server.Options) *fixture {
	t.Helper()
	repo := memory.New()
	blobs := storage.NewMemory("http://localhost/blobs")
	authUC := usecase.NewNoAuthnUseCase(repo, sub, sub+"@example.com", sub, role)
	gt.NoError(t, authUC.Provision(context.Background())).Required()

	uc := usecase.New(repo,
		usecase.WithBlobStore(blobs),
		usecase.WithDispatcher(nopDispatcher{}),
		usecase.WithAuth(authUC),
	)
	opts = append([]server.Options{server.WithBlobServer(blobs)}, opts...)
	return &fixture{srv: server.New(uc, opts...), repo: repo, blobs: blobs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedClaim(t *testing.T, owner string, status types.ClaimStatus) *model.Claim {
	t.Helper()
	c := &model.Claim{ID: model.NewClaimID(), ClaimantID: owner, Title: "seeded", ClaimedAmount: 100, Status: status}
	gt.NoError(t, f.repo.Claim().Create(context.Background(), c)).Required()
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v)).Required()
	return v
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func claimRequest() map[string]any {
	return map[string]any{
		"title":               "Hail damage",
		"policy_number":       "POL-9",
		"policyholder_name":   "Ravi K",
		"vehicle_make":        "Tata",
		"vehicle_model":       "Nexon",
		"vehicle_year":        2022,
		"registration_number": "MH12AB0001",
		"incident_date":       time.Now().AddDate(0, 0, -3).Format(time.DateOnly),
		"description":         "Dents on the roof after a storm",
		"claimed_amount":      45000,
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, "alice", types.UserRoleClaimant)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestClaimFlow(t *testing.T) {
	f := newFixture(t, "alice", types.UserRoleClaimant)

	rec := f.do(t, http.MethodPost, "/api/claims", claimRequest())
	gt.Value(t, rec.Code).Equal(http.StatusCreated)
	claim := decode[model.Claim](t, rec)
	gt.Value(t, claim.Status).Equal(types.ClaimStatusSubmitted)
	gt.Value(t, claim.ClaimantID).Equal("alice")

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/claims?q=hail&sort=amount_desc", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		body := decode[struct {
			Claims []model.Claim `json:"claims"`
		}](t, rec)
		gt.Array(t, body.Claims).Length(1)
		gt.Value(t, body.Claims[0].ID).Equal(claim.ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/claims/"+claim.ID.String(), nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, decode[model.Claim](t, rec).Title).Equal("Hail damage")
	})

	t.Run("upload then list returns the file once", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="roof.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		gt.NoError(t, err).Required()
		_, err = part.Write(pngHeader)
		gt.NoError(t, err).Required()
		gt.NoError(t, mw.Close()).Required()

		req := httptest.NewRequest(http.MethodPost, "/api/claims/"+claim.ID.String()+"/images", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.srv.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusCreated)
		img := decode[model.ClaimImage](t, rec)
		gt.Value(t, img.FileName).Equal("roof.png")

		rec = f.do(t, http.MethodGet, "/api/claims/"+claim.ID.String()+"/images", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		body := decode[struct {
			Images []model.ClaimImage `json:"images"`
		}](t, rec)
		gt.Array(t, body.Images).Length(1)
		gt.Value(t, body.Images[0].FileName).Equal("roof.png")

		t.Run("blob is served", func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/blobs/"+img.ObjectKey, nil)
			gt.Value(t, rec.Code).Equal(http.StatusOK)
			gt.Value(t, rec.Header().Get("Content-Type")).Equal("image/png")
			gt.Value(t, rec.Body.Bytes()).Equal(pngHeader)
		})
	})

	t.Run("upload without file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		gt.NoError(t, mw.WriteField("note", "nothing here")).Required()
		gt.NoError(t, mw.Close()).Required()

		req := httptest.NewRequest(http.MethodPost, "/api/claims/"+claim.ID.String()+"/images", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.srv.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
		gt.Value(t, decode[errorBody](t, rec).Fields["file"]).Equal("required")
	})

	t.Run("history", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/claims/"+claim.ID.String()+"/history", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		body := decode[struct {
			History []model.StatusHistory `json:"history"`
		}](t, rec)
		gt.Array(t, body.History).Length(1)
	})

	t.Run("claimants cannot decide", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/claims/"+claim.ID.String()+"/decision", map[string]any{"decision": "rejected"})
		gt.Value(t, rec.Code).Equal(http.StatusForbidden)
	})

	t.Run("unknown claim", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/claims/does-not-exist", nil)
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, "alice", types.UserRoleClaimant)

	t.Run("missing fields", func(t *testing.T) {
		req := claimRequest()
		delete(req, "title")
		req["claimed_amount"] = 0
		rec := f.do(t, http.MethodPost, "/api/claims", req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
		body := decode[errorBody](t, rec)
		gt.Value(t, body.Fields["title"]).Equal("required")
		gt.Value(t, body.Fields["claimed_amount"]).Equal("must be greater than zero")
	})

	t.Run("bad date", func(t *testing.T) {
		req := claimRequest()
		req["incident_date"] = "yesterday"
		rec := f.do(t, http.MethodPost, "/api/claims", req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
		gt.Value(t, decode[errorBody](t, rec).Fields["incident_date"]).Equal("must be YYYY-MM-DD")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/claims", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		f.srv.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("invalid sort", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/claims?sort=sideways", nil)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestDecisionEndpoint(t *testing.T) {
	f := newFixture(t, "bob", types.UserRoleAssessor)
	inReview := f.seedClaim(t, "alice", types.ClaimStatusAssessorReview)

	rec := f.do(t, http.MethodPost, "/api/claims/"+inReview.ID.String()+"/decision", map[string]any{
		"decision":        "approved",
		"approved_amount": 30000,
		"notes":           "ok",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	decided := decode[model.Claim](t, rec)
	gt.Value(t, decided.Status).Equal(types.ClaimStatusCompleted)
	gt.Value(t, *decided.ApprovedAmount).Equal(int64(30000))

	t.Run("terminal claims conflict", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/claims/"+inReview.ID.String()+"/decision", map[string]any{"decision": "rejected"})
		gt.Value(t, rec.Code).Equal(http.StatusConflict)
	})

	t.Run("reanalysis without analyzer", func(t *testing.T) {
		other := f.seedClaim(t, "alice", types.ClaimStatusAssessorReview)
		rec := f.do(t, http.MethodPost, "/api/claims/"+other.ID.String()+"/analyze", nil)
		gt.Value(t, rec.Code).Equal(http.StatusServiceUnavailable)
	})
}

func TestAdminEndpoints(t *testing.T) {
	f := newFixture(t, "root", types.UserRoleAdmin)
	gt.NoError(t, f.repo.User().Put(context.Background(), &model.User{ID: "bob", Email: "bob@example.com", Role: types.UserRoleClaimant})).Required()

	rec := f.do(t, http.MethodGet, "/api/admin/users", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	users := decode[struct {
		Users []model.User `json:"users"`
	}](t, rec)
	gt.Array(t, users.Users).Length(2)

	rec = f.do(t, http.MethodPut, "/api/admin/users/bob/role", map[string]string{"role": "assessor"})
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, decode[model.User](t, rec).Role).Equal(types.UserRoleAssessor)

	claim := f.seedClaim(t, "alice", types.ClaimStatusAssessorReview)
	rec = f.do(t, http.MethodPost, "/api/claims/"+claim.ID.String()+"/assign", map[string]string{"assessor_id": "bob"})
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, decode[model.Claim](t, rec).AssessorID).Equal("bob")

	rec = f.do(t, http.MethodGet, "/api/admin/analyzer/health", nil)
	gt.Value(t, rec.Code).Equal(http.StatusServiceUnavailable)

	t.Run("non admins are forbidden", func(t *testing.T) {
		f := newFixture(t, "alice", types.UserRoleClaimant)
		rec := f.do(t, http.MethodGet, "/api/admin/users", nil)
		gt.Value(t, rec.Code).Equal(http.StatusForbidden)
	})
}

func TestSessionCookies(t *testing.T) {
	repo := memory.New()
	authUC := usecase.NewAuthUseCase(repo, "https://issuer.example.com", "client")
	uc := usecase.New(repo, usecase.WithDispatcher(nopDispatcher{}), usecase.WithAuth(authUC))
	srv := server.New(uc)

	gt.NoError(t, repo.User().Put(context.Background(), &model.User{
		ID: "sub-1", Email: "a@example.com", Name: "A", Role: types.UserRoleAssessor,
	})).Required()
	token := auth.NewToken("sub-1", "a@example.com", "A", types.UserRoleClaimant, time.Hour)
	gt.NoError(t, repo.PutToken(context.Background(), token)).Required()

	withCookies := func(req *http.Request, id, secret string) *http.Request {
		req.AddCookie(&http.Cookie{Name: "token_id", Value: id})
		req.AddCookie(&http.Cookie{Name: "token_secret", Value: secret})
		return req
	}

	t.Run("no cookies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("valid session reports the stored role", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), token.ID.String(), token.Secret.String()))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		var me struct {
			Sub  string `json:"sub"`
			Role string `json:"role"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me)).Required()
		gt.Value(t, me.Sub).Equal("sub-1")
		gt.Value(t, me.Role).Equal("assessor")
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/api/claims", nil), token.ID.String(), "bad"))
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("invalid ID token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/session", strings.NewReader(`{"id_token":""}`)))
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("logout clears the session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), token.ID.String(), token.Secret.String()))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), token.ID.String(), token.Secret.String()))
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})
}

func TestClaimEventStream(t *testing.T) {
	broker := event.NewBroker()
	f := newFixture(t, "alice", types.UserRoleClaimant, server.WithEventSource(broker), server.WithKeepAlive(time.Hour))
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/claims/events", nil)
	gt.NoError(t, err).Required()
	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	gt.Value(t, resp.Header.Get("Content-Type")).Equal("text/event-stream")

	hidden := &model.Claim{ID: "c-other", ClaimantID: "mallory", Status: types.ClaimStatusSubmitted}
	mine := &model.Claim{ID: "c-mine", ClaimantID: "alice", Status: types.ClaimStatusSubmitted}
	broker.Publish(ctx, model.NewClaimEvent(types.ClaimEventSubmitted, hidden))
	broker.Publish(ctx, model.NewClaimEvent(types.ClaimEventSubmitted, mine))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	gt.NoError(t, scanner.Err()).Required()

	var ev model.ClaimEvent
	gt.NoError(t, json.Unmarshal([]byte(data), &ev)).Required()
	gt.Value(t, ev.ClaimID).Equal(model.ClaimID("c-mine"))
	gt.Value(t, ev.Type).Equal(types.ClaimEventSubmitted)
}

func TestEventStreamEndsOnShutdown(t *testing.T) {
	broker := event.NewBroker()
	f := newFixture(t, "alice", types.UserRoleClaimant, server.WithEventSource(broker), server.WithKeepAlive(time.Hour))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	gt.NoError(t, err).Required()
	srv := &http.Server{Handler: f.srv, ReadHeaderTimeout: time.Second}
	srv.RegisterOnShutdown(f.srv.CloseStreams)
	go func() {
		_ = srv.Serve(ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/claims/events")
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gt.NoError(t, srv.Shutdown(ctx))

	_, err = io.ReadAll(resp.Body)
	gt.NoError(t, err)
}
