package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/karte-api/internal/model"
	"github.com/jwalitptl/karte-api/pkg/errors"
)

// ParseID reads a uuid path parameter.
func ParseID(c *gin.Context, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid "+param, err)
	}
	return id, nil
}

// ParseEntryKind reads the :kind path parameter.
func ParseEntryKind(c *gin.Context) (model.EntryKind, error) {
	kind, ok := model.ParseEntryKind(c.Param("kind"))
	if !ok {
		return "", errors.BadRequest("kind must be one of appointment, record, memo, image", nil)
	}
	return kind, nil
}

// BindError hands a binding failure to the validation middleware, which
// renders it.
func BindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
}
