package utils

import (
	"strconv"
	"strings"
	"sync"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/validators"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var configureBinding sync.Once

func configure() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validators.Configure(v)
	}
}

// PathID parses a numeric path parameter
func PathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// QueryInt reads an integer query parameter, falling back to def
func QueryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// QueryBool is true for "true" and "1"
func QueryBool(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "true", "1":
		return true
	}
	return false
}

// QueryInt64 reads an optional integer query parameter
func QueryInt64(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Validation(name, "must be an integer")
	}
	return &v, nil
}

// QueryList splits a comma separated query parameter, dropping blanks
func QueryList(c *gin.Context, name string) []string {
	var out []string
	for _, s := range strings.Split(c.Query(name), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BindJSON decodes the request body into dst and checks its binding rules
func BindJSON(c *gin.Context, dst interface{}) error {
	configureBinding.Do(configure)
	if err := c.ShouldBindJSON(dst); err != nil {
		return validators.FromBinding(err)
	}
	return nil
}

// BindQuery binds the query string into dst and checks its binding rules
func BindQuery(c *gin.Context, dst interface{}) error {
	configureBinding.Do(configure)
	if err := c.ShouldBindQuery(dst); err != nil {
		return validators.FromBinding(err)
	}
	return nil
}

// RawBody reads the whole request body
func RawBody(c *gin.Context) ([]byte, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, apperrors.Validation("body", "unreadable body")
	}
	return raw, nil
}
