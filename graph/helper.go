package graph

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ErrorPresenter maps domain errors to GraphQL errors with a stable `type`
// extension. Anything outside the domain taxonomy is logged and surfaced as
// a generic internal error so internals never leak to clients.
func ErrorPresenter(ctx context.Context, err error) *gqlerror.Error {
	gqlErr := graphql.DefaultErrorPresenter(ctx, err)

	var underlying error = err
	var wrapped *gqlerror.Error
	if errors.As(err, &wrapped) && wrapped.Unwrap() != nil {
		underlying = wrapped.Unwrap()
	}

	typeTag, status := utils.ErrorTypeTag(underlying)
	if !utils.IsDomainError(underlying) {
		config.LogError(config.GetLogger(), "graph", "ErrorPresenter", "internal error", nil, underlying)
		gqlErr.Message = "internal server error"
	}

	if gqlErr.Extensions == nil {
		gqlErr.Extensions = map[string]interface{}{}
	}
	gqlErr.Extensions["type"] = typeTag
	gqlErr.Extensions["status"] = status
	return gqlErr
}

// Recover turns resolver panics into internal errors instead of killing the
// request.
func Recover(ctx context.Context, p interface{}) error {
	config.LogError(config.GetLogger(), "graph", "Recover", "panic in resolver",
		p, errors.New("resolver panic"))
	return errors.New("internal server error")
}
