package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/trezcool/cems/apps/api/echo"
	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

// app is a server over an in-memory store.
type app struct {
	*testutil.Store
	server *echoapi.Server
	svc    *academic.Service
	logger *testutil.Logger
}

// newApp sets up a server on s; wrap, if given, decorates the academics repository.
func newApp(t *testing.T, s *testutil.Store, wrap ...func(academic.Repository) academic.Repository) *app {
	if s == nil {
		s = testutil.NewStore(t)
	}
	if len(wrap) > 0 {
		s.Academics = wrap[0](s.Academics)
	}
	logger := new(testutil.Logger)
	svc := s.AcademicService(logger)
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        &core.Config{AppName: "CEMS", TestMode: true},
		Logger:      logger,
		AcademicSvc: svc,
		ProfileSvc:  s.ProfileSvc,
		Translator:  s.Translator,
	})
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })
	return &app{Store: s, server: server, svc: svc, logger: logger}
}

func (a *app) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, a *app, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, a.do(tt.method, tt.path, tt.body))
		})
	}
}

var _ http.Handler = (*echoapi.Server)(nil)
