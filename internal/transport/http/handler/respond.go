package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lendtrack/internal/domain"
	"lendtrack/internal/service"
	mdw "lendtrack/internal/transport/http/middleware"
	resp "lendtrack/internal/transport/http/response"
)

func codeOf(err error) int {
	var de *domain.Error
	if !errors.As(err, &de) {
		return resp.CodeServerError
	}
	switch de.Kind {
	case domain.KindNotFound:
		return resp.CodeNotFound
	case domain.KindConflict:
		return resp.CodeConflict
	case domain.KindForbidden:
		return resp.CodeForbidden
	case domain.KindUnauthorized:
		return resp.CodeUnauthorized
	case domain.KindInvalidArgument:
		return resp.CodeBadRequest
	default:
		return resp.CodeServerError
	}
}

func writeErr(c *gin.Context, err error) {
	code := codeOf(err)
	msg := err.Error()
	if code == resp.CodeServerError {
		// Storage detail stays in the logs.
		msg = "internal error"
	}
	c.JSON(http.StatusOK, resp.Error(code, msg))
}

func writeOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, resp.OK(data))
}

// caller resolves the authenticated operator through the policy gate. The
// gate must succeed before any handler examines business preconditions.
func caller(c *gin.Context, p *service.Policy) (*service.Caller, bool) {
	email := c.GetString(mdw.KeyEmail)
	if email == "" {
		writeErr(c, domain.Unauthorized("missing session identity"))
		return nil, false
	}
	cl, err := p.Resolve(c.Request.Context(), email)
	if err != nil {
		writeErr(c, err)
		return nil, false
	}
	return cl, true
}

// parseDate accepts a bare calendar date or a full timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func queryUint(c *gin.Context, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, domain.InvalidArgument("missing " + key)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.InvalidArgument("invalid " + key)
	}
	return uint(v), nil
}

func paramUint(c *gin.Context, key string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil {
		return 0, domain.InvalidArgument("invalid " + key)
	}
	return uint(v), nil
}

// queryUintList parses a comma-separated id list query parameter. An absent
// parameter yields nil, not an error.
func queryUintList(c *gin.Context, key string) ([]uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, domain.InvalidArgument("invalid " + key)
		}
		out = append(out, uint(v))
	}
	return out, nil
}
