package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/scope"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPhone = "+1 202-456-1111"

type request struct {
	method string
	target string
	body   any
	actor  *scope.Actor
	params map[string]string
	lang   string
}

func newContext(t *testing.T, r request) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var body *strings.Reader
	switch b := r.body.(type) {
	case nil:
		body = strings.NewReader("")
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(r.method, r.target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.lang != "" {
		req.Header.Set("Accept-Language", r.lang)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if len(r.params) > 0 {
		names := make([]string, 0, len(r.params))
		values := make([]string, 0, len(r.params))
		for k, v := range r.params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if r.actor != nil {
		c.Set(apimw.ActorKey, *r.actor)
	}
	return c, rec
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) scope.Actor {
	t.Helper()
	u := models.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return scope.Actor{UserID: u.ID, Role: u.Role}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func idStr(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
