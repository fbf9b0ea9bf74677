package handler

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"lendtrack/internal/domain"
	resp "lendtrack/internal/transport/http/response"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFound("x"), resp.CodeNotFound},
		{domain.Conflict("x"), resp.CodeConflict},
		{domain.Forbidden("x"), resp.CodeForbidden},
		{domain.Unauthorized("x"), resp.CodeUnauthorized},
		{domain.InvalidArgument("x"), resp.CodeBadRequest},
		{domain.Internal("x", errors.New("boom")), resp.CodeServerError},
		{errors.New("plain"), resp.CodeServerError},
	}
	for _, tc := range cases {
		if got := codeOf(tc.err); got != tc.want {
			t.Fatalf("codeOf(%v): got %d want %d", tc.err, got, tc.want)
		}
	}
}

func TestWriteErrHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeErr(c, domain.Internal("list loans", errors.New("dial tcp: refused")))

	if w.Code != 200 {
		t.Fatalf("http status: got %d want 200", w.Code)
	}
	var body resp.Resp
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != resp.CodeServerError {
		t.Fatalf("code: got %d", body.Code)
	}
	if body.Msg != "internal error" {
		t.Fatalf("internal detail leaked: %q", body.Msg)
	}
}

func TestWriteErrKeepsBusinessMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeErr(c, domain.Conflict("patrimony unit is not available"))

	var body resp.Resp
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != resp.CodeConflict || body.Msg != "patrimony unit is not available" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-05-20")
	if err != nil {
		t.Fatalf("calendar date: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 5 || d.Day() != 20 {
		t.Fatalf("got %v", d)
	}

	d, err = parseDate("2024-05-20T14:30:00Z")
	if err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	if d.Hour() != 14 {
		t.Fatalf("got %v", d)
	}

	if _, err := parseDate("20/05/2024"); err == nil {
		t.Fatal("expected failure on unknown layout")
	}
}

func TestQueryUintList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newCtx := func(q string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/?patrimonios="+q, nil)
		return c
	}

	ids, err := queryUintList(newCtx("1,2,30"), "patrimonios")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 30 {
		t.Fatalf("got %v", ids)
	}

	ids, err = queryUintList(newCtx(""), "patrimonios")
	if err != nil || ids != nil {
		t.Fatalf("empty param: got %v, %v", ids, err)
	}

	if _, err := queryUintList(newCtx("1,x"), "patrimonios"); err == nil {
		t.Fatal("expected failure on non-numeric entry")
	}
}
